package stub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

type Route struct {
	ID          int    `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

var (
	DefaultRoutes = []Route{
		{ID: 1, Origin: "Bogotá", Destination: "Medellín"},
		{ID: 2, Origin: "Bogotá", Destination: "Cali"},
	}
	DefaultSchedules = map[int][]string{
		1: {"08:00", "14:00", "20:00"},
		2: {"07:30", "16:00"},
	}
)

type usernameKey struct{}

// Server stubs the auth, directory, reservation and profile services behind one router.
type Server struct {
	accounts  *Accounts
	tokens    *TokenIssuer
	ledger    *Ledger
	metrics   *Metrics
	routes    []Route
	schedules map[int][]string
	logger    application.AppLogger
}

func NewServer(accounts *Accounts, tokens *TokenIssuer, logger application.AppLogger) *Server {
	busIDs := make([]int, 0, len(DefaultRoutes))
	for _, r := range DefaultRoutes {
		busIDs = append(busIDs, r.ID)
	}
	return &Server{
		accounts:  accounts,
		tokens:    tokens,
		ledger:    NewLedger(busIDs...),
		metrics:   NewMetrics(),
		routes:    DefaultRoutes,
		schedules: DefaultSchedules,
		logger:    logger,
	}
}

func (s *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestID)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.HandleRegister)
		r.Post("/auth/login", s.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/routes/routes", s.HandleRoutes)
			r.Get("/routes/schedules/{routeID}", s.HandleSchedules)
			r.Get("/reservation/availability/{busID}/{date}", s.HandleAvailability)
			r.Post("/reservation/reserve", s.HandleReserve)
			r.Get("/user/profile/", s.HandleProfile)
		})
	})
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return router
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		handleError(w, "Missing data", http.StatusBadRequest)
		return
	}

	if err := s.accounts.Register(req.Username, req.Password, req.Email); err != nil {
		if errors.Is(err, ErrUserExists) {
			handleError(w, "User already exists", http.StatusBadRequest)
			return
		}
		application.LogError(r.Context(), s.logger, "error registering user", err, nil)
		handleError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	s.metrics.registrations.Inc()
	application.LogInfo(r.Context(), s.logger, "user registered", map[string]interface{}{"username": req.Username})
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !s.accounts.Authenticate(req.Username, req.Password) {
		handleError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		application.LogError(r.Context(), s.logger, "error issuing token", err, nil)
		handleError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	s.metrics.logins.Inc()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) HandleRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.routes)
}

func (s *Server) HandleSchedules(w http.ResponseWriter, r *http.Request) {
	routeID, err := strconv.Atoi(chi.URLParam(r, "routeID"))
	if err != nil {
		handleError(w, "Invalid route ID", http.StatusBadRequest)
		return
	}
	schedules := s.schedules[routeID]
	if schedules == nil {
		schedules = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"schedules": schedules})
}

func (s *Server) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	s.metrics.availabilityRequests.Inc()
	started := time.Now()
	defer func() { s.metrics.availabilityLatency.Observe(time.Since(started).Seconds()) }()

	busID, err := strconv.Atoi(chi.URLParam(r, "busID"))
	if err != nil {
		handleError(w, "Invalid bus ID", http.StatusBadRequest)
		return
	}
	schedule := r.URL.Query().Get("schedule")
	if schedule == "" {
		handleError(w, "Missing schedule parameter", http.StatusBadRequest)
		return
	}

	seats, err := s.ledger.Available(busID, chi.URLParam(r, "date"), schedule)
	if err != nil {
		handleError(w, "Invalid bus ID", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"available_seats": seats})
}

type reserveRequest struct {
	BusID       int    `json:"bus_id"`
	SeatNumbers []int  `json:"seat_numbers"`
	Date        string `json:"date"`
	Schedule    string `json:"schedule"`
}

func (s *Server) HandleReserve(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer func() { s.metrics.reservationLatency.Observe(time.Since(started).Seconds()) }()

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.reservationErrors.Inc()
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.BusID == 0 || len(req.SeatNumbers) == 0 || req.Date == "" || req.Schedule == "" {
		s.metrics.reservationErrors.Inc()
		handleError(w, "Missing data", http.StatusBadRequest)
		return
	}

	if err := s.ledger.Reserve(req.BusID, req.Date, req.Schedule, req.SeatNumbers); err != nil {
		s.metrics.reservationErrors.Inc()
		switch {
		case errors.Is(err, ErrSeatTaken):
			handleError(w, "Seat already reserved", http.StatusBadRequest)
		case errors.Is(err, ErrUnknownBus):
			handleError(w, "Invalid bus ID", http.StatusBadRequest)
		default:
			handleError(w, "Invalid seat numbers", http.StatusBadRequest)
		}
		return
	}

	s.metrics.reservations.Inc()
	application.LogInfo(r.Context(), s.logger, "seats reserved", map[string]interface{}{
		"bus_id":   req.BusID,
		"seats":    req.SeatNumbers,
		"date":     req.Date,
		"schedule": req.Schedule,
		"username": usernameFrom(r.Context()),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Seats reserved successfully"})
}

func (s *Server) HandleProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accounts.Lookup(usernameFrom(r.Context()))
	if !ok {
		handleError(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username":    account.Username,
		"email":       account.Email,
		"card_number": account.Card.Number,
		"expiry_date": account.Card.Expiry,
		"cvv":         account.Card.CVV,
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			handleError(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			handleError(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		username, err := s.tokens.Parse(raw)
		if err != nil {
			handleError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey{}, username)))
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			r = r.WithContext(application.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func usernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey{}).(string)
	return username
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func handleError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}
