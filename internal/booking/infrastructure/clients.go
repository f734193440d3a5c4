package infrastructure

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
)

// AuthClient talks to the authentication service.
type AuthClient struct{ api *APIClient }

func NewAuthClient(api *APIClient) *AuthClient { return &AuthClient{api: api} }

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (cred domain.Credential, err error) {
	const op = "login"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	if strings.TrimSpace(username) == "" || password == "" {
		return "", domain.NewValidationError("username", "username and password are required")
	}

	body, err := c.api.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        c.api.endpoints.Login,
		body:        credentialsBody{Username: username, Password: password},
		rejectedMsg: "invalid username or password",
		fallbackMsg: "login failed",
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := decode(op, body, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", malformed(op, nil)
	}
	return domain.Credential(payload.Token), nil
}

// Register creates an account and returns the server acknowledgement.
func (c *AuthClient) Register(ctx context.Context, username, password, email string) (msg string, err error) {
	const op = "register"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	switch {
	case strings.TrimSpace(username) == "":
		return "", domain.NewValidationError("username", "username is required")
	case password == "":
		return "", domain.NewValidationError("password", "password is required")
	case !strings.Contains(email, "@"):
		return "", domain.NewValidationError("email", "a valid email is required")
	}

	body, err := c.api.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        c.api.endpoints.Register,
		body:        credentialsBody{Username: username, Password: password, Email: email},
		fallbackMsg: "registration failed",
	})
	if err != nil {
		return "", err
	}
	return serverMessage(body, "user registered"), nil
}

// DirectoryClient lists routes and their schedules.
type DirectoryClient struct{ api *APIClient }

func NewDirectoryClient(api *APIClient) *DirectoryClient { return &DirectoryClient{api: api} }

func (c *DirectoryClient) Routes(ctx context.Context) (routes []domain.Route, err error) {
	const op = "routes"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	body, err := c.api.do(ctx, call{
		op:            op,
		method:        http.MethodGet,
		path:          c.api.endpoints.Routes,
		authenticated: true,
		fallbackMsg:   "could not load routes",
	})
	if err != nil {
		return nil, err
	}

	var payload *[]domain.Route
	if err := decode(op, body, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, malformed(op, nil)
	}
	return *payload, nil
}

func (c *DirectoryClient) Schedules(ctx context.Context, routeID string) (schedules []string, err error) {
	const op = "schedules"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	if strings.TrimSpace(routeID) == "" {
		return nil, domain.NewValidationError("route_id", "select a route")
	}

	body, err := c.api.do(ctx, call{
		op:            op,
		method:        http.MethodGet,
		path:          c.api.endpoints.Schedules + "/" + url.PathEscape(routeID),
		authenticated: true,
		fallbackMsg:   "could not load schedules",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Schedules *[]string `json:"schedules"`
	}
	if err := decode(op, body, &payload); err != nil {
		return nil, err
	}
	if payload.Schedules == nil {
		return nil, malformed(op, nil)
	}
	return *payload.Schedules, nil
}

// ReservationClient checks availability and commits reservations.
type ReservationClient struct{ api *APIClient }

func NewReservationClient(api *APIClient) *ReservationClient { return &ReservationClient{api: api} }

func (c *ReservationClient) Availability(ctx context.Context, criteria domain.Criteria) (snapshot domain.Snapshot, err error) {
	const op = "availability"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	if err := criteria.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	path := c.api.endpoints.Availability + "/" + url.PathEscape(criteria.RouteID) + "/" + url.PathEscape(criteria.Date) +
		"?" + url.Values{"schedule": {criteria.Schedule}}.Encode()
	body, err := c.api.do(ctx, call{
		op:            op,
		method:        http.MethodGet,
		path:          path,
		authenticated: true,
		fallbackMsg:   "could not check availability",
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	var payload struct {
		AvailableSeats *[]int `json:"available_seats"`
	}
	if err := decode(op, body, &payload); err != nil {
		return domain.Snapshot{}, err
	}
	if payload.AvailableSeats == nil {
		return domain.Snapshot{}, malformed(op, nil)
	}
	return domain.NewSnapshot(*payload.AvailableSeats)
}

func (c *ReservationClient) Reserve(ctx context.Context, req domain.ReservationRequest) (ack domain.ReservationAck, err error) {
	const op = "reserve"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	payload, err := req.Payload()
	if err != nil {
		return domain.ReservationAck{}, err
	}

	body, err := c.api.do(ctx, call{
		op:            op,
		method:        http.MethodPost,
		path:          c.api.endpoints.Reserve,
		body:          payload,
		authenticated: true,
		fallbackMsg:   "reservation failed",
	})
	if err != nil {
		return domain.ReservationAck{}, err
	}

	// the acknowledgement is opaque; an empty body is still a success
	ack.Message = serverMessage(body, "seats reserved")
	return ack, nil
}

// ProfileClient fetches the profile and the simulated stored card.
type ProfileClient struct{ api *APIClient }

func NewProfileClient(api *APIClient) *ProfileClient { return &ProfileClient{api: api} }

func (c *ProfileClient) Profile(ctx context.Context) (profile domain.Profile, err error) {
	const op = "profile"
	started := time.Now()
	defer func() { c.api.finish(ctx, op, started, err) }()

	body, err := c.api.do(ctx, call{
		op:            op,
		method:        http.MethodGet,
		path:          c.api.endpoints.Profile,
		authenticated: true,
		fallbackMsg:   "could not load profile",
	})
	if err != nil {
		return domain.Profile{}, err
	}

	var payload struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		CardNumber string `json:"card_number"`
		ExpiryDate string `json:"expiry_date"`
		CVV        string `json:"cvv"`
	}
	if err := decode(op, body, &payload); err != nil {
		return domain.Profile{}, err
	}
	if payload.Username == "" {
		return domain.Profile{}, malformed(op, nil)
	}
	return domain.Profile{
		Username:   payload.Username,
		Email:      payload.Email,
		Instrument: domain.NewPaymentInstrument(payload.CardNumber, payload.ExpiryDate, payload.CVV),
	}, nil
}
