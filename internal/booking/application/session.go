package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const DefaultExpiredDelay = 2 * time.Second

// Step is the page of the booking flow the user is on.
type Step int

const (
	StepSignedOut Step = iota
	StepDirectory
	StepCriteria
	StepSeats
	StepPayment
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepDirectory:
		return "directory"
	case StepCriteria:
		return "criteria"
	case StepSeats:
		return "seats"
	case StepPayment:
		return "payment"
	case StepCompleted:
		return "completed"
	default:
		return "signed_out"
	}
}

type SessionConfig struct {
	// ExpiredDelay is how long the "session expired" notice stays up before ToEntry.
	ExpiredDelay time.Duration
	IDGenerator  pkgDomain.IDGenerator[string]
	Now          func() time.Time
}

// View is a read-only copy of the session state for rendering.
type View struct {
	Step           Step
	Username       string
	Routes         []domain.Route
	RouteID        string
	Schedules      []string
	Criteria       domain.Criteria
	Seats          []domain.SeatView
	Selected       []int
	Selection      domain.SelectionState
	Price          int
	MapUnavailable bool
	Busy           bool
	Pending        *domain.Receipt
}

// Session sequences one user's booking flow over the buses. It is safe for concurrent use;
// network calls run outside its lock.
type Session struct {
	buses        Buses
	auth         AuthService
	credentials  domain.CredentialStore
	receipts     domain.ReceiptRepository
	navigator    Navigator
	selector     *domain.SeatSelector
	newID        pkgDomain.IDGenerator[string]
	now          func() time.Time
	expiredDelay time.Duration
	logger       pkgApp.AppLogger
	flights      singleflight.Group

	mu         sync.Mutex
	step       Step
	username   string
	epoch      uint64 // bumped on login, logout and expiry
	generation uint64 // bumped on every availability check and navigation
	checking   bool   // the latest availability check has not settled yet
	routes     []domain.Route
	routeID    string
	schedules  []string
	criteria   domain.Criteria
	busy       bool
	profile    *domain.Profile
	pending    *domain.Receipt
}

func NewSession(
	buses Buses,
	auth AuthService,
	credentials domain.CredentialStore,
	receipts domain.ReceiptRepository,
	navigator Navigator,
	cfg SessionConfig,
	logger pkgApp.AppLogger,
) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ExpiredDelay <= 0 {
		cfg.ExpiredDelay = DefaultExpiredDelay
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	return &Session{
		buses:        buses,
		auth:         auth,
		credentials:  credentials,
		receipts:     receipts,
		navigator:    navigator,
		selector:     domain.NewSeatSelector(),
		newID:        cfg.IDGenerator,
		now:          cfg.Now,
		expiredDelay: cfg.ExpiredDelay,
		logger:       logger,
	}
}

func (s *Session) Register(ctx context.Context, username, password, email string) error {
	msg, err := s.auth.Register(ctx, username, password, email)
	if err != nil {
		s.notifyFailure(ctx, domain.CodeAuthFailed, "registration failed", err)
		return err
	}
	s.notify(ctx, domain.SuccessNotice(domain.CodeRegistered, msg))
	return nil
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	credential, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.notifyFailure(ctx, domain.CodeAuthFailed, "login failed", err)
		return err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		pkgApp.LogError(ctx, s.logger, "error saving credential", err, nil)
		s.notifyFailure(ctx, domain.CodeAuthFailed, "login failed", err)
		return err
	}

	s.mu.Lock()
	s.clearFlowLocked()
	s.epoch++
	s.username = username
	s.step = StepDirectory
	s.mu.Unlock()

	pkgApp.LogInfo(ctx, s.logger, "signed in", map[string]interface{}{"username": username})
	s.notify(ctx, domain.SuccessNotice(domain.CodeSignedIn, "welcome, "+username))
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.clearFlowLocked()
	s.epoch++
	s.username = ""
	s.step = StepSignedOut
	s.mu.Unlock()

	if err := s.credentials.Clear(ctx); err != nil {
		pkgApp.LogError(ctx, s.logger, "error clearing credential", err, nil)
		return err
	}
	s.notify(ctx, domain.InfoNotice(domain.CodeSignedOut, "signed out"))
	return nil
}

// LoadRoutes fetches the directory and moves to criteria selection.
func (s *Session) LoadRoutes(ctx context.Context) ([]domain.Route, error) {
	s.mu.Lock()
	if s.step == StepSignedOut {
		s.mu.Unlock()
		return nil, domain.ErrOutOfOrder
	}
	s.leaveSeatViewLocked()
	epoch := s.epoch
	s.mu.Unlock()

	v, err, _ := s.flights.Do(flightKey(epoch, "routes"), func() (interface{}, error) {
		return s.buses.Routes.Dispatch(ctx, NewLoadRoutesQuery())
	})
	if err != nil {
		return nil, s.fail(ctx, epoch, domain.CodeDirectoryError, "could not load routes", err)
	}
	routes := slices.Clone(v.([]domain.Route))

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, domain.ErrSuperseded
	}
	s.routes = routes
	s.pending = nil
	s.step = StepCriteria
	s.mu.Unlock()

	if len(routes) == 0 {
		s.notify(ctx, domain.InfoNotice(domain.CodeNoRoutes, "no routes available"))
	}
	return slices.Clone(routes), nil
}

// SelectRoute loads the schedules of a route. Leaving the seat view resets the selection.
func (s *Session) SelectRoute(ctx context.Context, routeID string) ([]string, error) {
	if routeID == "" {
		err := domain.NewValidationError("route_id", "select a route")
		s.notifyFailure(ctx, domain.CodeInvalidInput, "select a route", err)
		return nil, err
	}

	s.mu.Lock()
	if s.step != StepCriteria && s.step != StepSeats {
		s.mu.Unlock()
		return nil, domain.ErrOutOfOrder
	}
	s.leaveSeatViewLocked()
	s.step = StepCriteria
	epoch := s.epoch
	s.mu.Unlock()

	v, err, _ := s.flights.Do(flightKey(epoch, "schedules", routeID), func() (interface{}, error) {
		return s.buses.Schedules.Dispatch(ctx, NewLoadSchedulesQuery(LoadSchedulesData{RouteID: routeID}))
	})
	if err != nil {
		return nil, s.fail(ctx, epoch, domain.CodeDirectoryError, "could not load schedules", err)
	}
	schedules := slices.Clone(v.([]string))

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, domain.ErrSuperseded
	}
	s.routeID = routeID
	s.schedules = schedules
	s.mu.Unlock()

	if len(schedules) == 0 {
		s.notify(ctx, domain.InfoNotice(domain.CodeNoSchedules, "no schedules for this route"))
	}
	return slices.Clone(schedules), nil
}

// CheckAvailability fetches the seat map for criteria and loads it into the selector,
// unless a newer check or a navigation happened meanwhile.
func (s *Session) CheckAvailability(ctx context.Context, criteria domain.Criteria) error {
	if err := criteria.Validate(); err != nil {
		s.notifyFailure(ctx, domain.CodeInvalidInput, "fill in route, date and schedule", err)
		return err
	}

	s.mu.Lock()
	if s.step != StepCriteria && s.step != StepSeats {
		s.mu.Unlock()
		return domain.ErrOutOfOrder
	}
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.generation++
	s.checking = true
	generation, epoch := s.generation, s.epoch
	s.mu.Unlock()

	v, err, _ := s.flights.Do(flightKey(epoch, "availability", criteria.Key()), func() (interface{}, error) {
		return s.buses.Availability.Dispatch(ctx, NewCheckAvailabilityQuery(CheckAvailabilityData{Criteria: criteria}))
	})
	if err != nil && domain.IsAuthExpired(err) {
		s.expire(ctx, epoch)
		return err
	}

	s.mu.Lock()
	if generation == s.generation {
		s.checking = false
	}
	if epoch != s.epoch || generation != s.generation {
		s.mu.Unlock()
		pkgApp.LogDebug(ctx, s.logger, "discarding stale availability", map[string]interface{}{
			"route_id": criteria.RouteID,
		})
		return domain.ErrSuperseded
	}
	switch {
	case err != nil && domain.IsMalformed(err):
		s.selector.MarkUnavailable()
		s.step = StepSeats
		s.mu.Unlock()
		pkgApp.LogError(ctx, s.logger, "seat map unavailable", err, nil)
		s.notify(ctx, domain.ErrorNotice(domain.CodeMapUnavailable, "could not load seat map"))
		return err
	case err != nil:
		s.mu.Unlock()
		s.notifyFailure(ctx, domain.CodeAvailabilityErr, "could not check availability", err)
		return err
	}

	snapshot := v.(domain.Snapshot)
	s.selector.Load(snapshot)
	s.criteria = criteria
	s.step = StepSeats
	s.mu.Unlock()

	if snapshot.Len() == 0 {
		s.notify(ctx, domain.InfoNotice(domain.CodeMapUnavailable, "no seats available for this schedule"))
	}
	return nil
}

// ToggleSeat is ignored outside the seat view and while a request is in flight.
func (s *Session) ToggleSeat(ctx context.Context, seat int) domain.ToggleOutcome {
	s.mu.Lock()
	if s.step != StepSeats || s.busy || s.checking {
		s.mu.Unlock()
		return domain.ToggleIgnored
	}
	outcome := s.selector.Toggle(seat)
	s.mu.Unlock()

	if outcome == domain.ToggleLimitReached {
		s.notify(ctx, domain.InfoNotice(domain.CodeSeatLimit, "you can select at most 2 seats"))
	}
	return outcome
}

// Reserve commits the current selection. On success the selection is reset and the flow
// moves to payment. It is refused while a newer availability check is outstanding.
func (s *Session) Reserve(ctx context.Context) (domain.Receipt, error) {
	s.mu.Lock()
	if s.step != StepSeats {
		s.mu.Unlock()
		return domain.Receipt{}, domain.ErrOutOfOrder
	}
	if s.busy || s.checking {
		s.mu.Unlock()
		return domain.Receipt{}, domain.ErrBusy
	}
	req := domain.NewReservationRequest(s.criteria, s.selector.Selected())
	if err := req.Validate(); err != nil {
		s.mu.Unlock()
		s.notifyFailure(ctx, domain.CodeInvalidInput, "select at least one seat", err)
		return domain.Receipt{}, err
	}
	s.busy = true
	epoch, username := s.epoch, s.username
	s.mu.Unlock()
	defer s.release()

	receiptID := s.newID()
	err := s.buses.Reserve.Dispatch(ctx, NewReserveSeatsCommand(ReserveSeatsData{
		ReceiptID: receiptID,
		Username:  username,
		Request:   req,
	}))
	if err != nil {
		return domain.Receipt{}, s.fail(ctx, epoch, domain.CodeReservationError, "reservation failed", err)
	}

	receipt, lookupErr := s.receipts.FindByID(ctx, receiptID)
	if lookupErr != nil {
		receipt = domain.Receipt{
			ID:        receiptID,
			Username:  username,
			RouteID:   req.Criteria.RouteID,
			Date:      req.Criteria.Date,
			Schedule:  req.Criteria.Schedule,
			Seats:     slices.Clone(req.SeatNumbers),
			Amount:    req.Amount(),
			Status:    domain.ReceiptReserved,
			CreatedAt: s.now(),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selector.Reset()
	s.generation++
	if epoch != s.epoch {
		return receipt, domain.ErrSuperseded
	}
	pending := receipt
	s.pending = &pending
	s.step = StepPayment
	return receipt, nil
}

// ConfirmPayment validates the entered code, loads the reference instrument on first use
// and dispatches the confirmation. A failed payment keeps the reservation.
func (s *Session) ConfirmPayment(ctx context.Context, secret string) error {
	if err := ValidateSecret(secret); err != nil {
		s.notifyFailure(ctx, domain.CodeInvalidInput, "invalid security code", err)
		return err
	}

	s.mu.Lock()
	if s.step != StepPayment || s.pending == nil {
		s.mu.Unlock()
		return domain.ErrOutOfOrder
	}
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.busy = true
	epoch := s.epoch
	pending := *s.pending
	profile := s.profile
	s.mu.Unlock()
	defer s.release()

	if profile == nil {
		v, err, _ := s.flights.Do(flightKey(epoch, "profile"), func() (interface{}, error) {
			return s.buses.Profile.Dispatch(ctx, NewLoadProfileQuery())
		})
		if err != nil {
			return s.fail(ctx, epoch, domain.CodeProfileError, "could not load payment details", err)
		}
		loaded := v.(domain.Profile)
		profile = &loaded

		s.mu.Lock()
		if epoch == s.epoch {
			s.profile = profile
		}
		s.mu.Unlock()
	}

	err := s.buses.Payment.Dispatch(ctx, NewConfirmPaymentCommand(ConfirmPaymentData{
		ReceiptID:  pending.ID,
		Amount:     pending.Amount,
		Secret:     secret,
		Instrument: profile.Instrument,
	}))
	if reason, rejected := domain.PaymentRejection(err); rejected {
		if reason == domain.ReasonDeclined {
			s.mu.Lock()
			if s.pending != nil && s.pending.ID == pending.ID {
				s.pending.Status = domain.ReceiptPaymentFailed
			}
			s.mu.Unlock()
		}
		s.notify(ctx, domain.ErrorNotice(domain.CodePaymentRejected, string(reason)))
		return err
	}
	if err != nil {
		return s.fail(ctx, epoch, domain.CodePaymentRejected, "payment failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return domain.ErrSuperseded
	}
	s.pending = nil
	s.step = StepCompleted
	return nil
}

// Reservations lists the signed-in user's receipts, newest first.
func (s *Session) Reservations(ctx context.Context) ([]domain.Receipt, error) {
	s.mu.Lock()
	username, step := s.username, s.step
	s.mu.Unlock()
	if step == StepSignedOut {
		return nil, domain.ErrOutOfOrder
	}
	return s.receipts.FindByUsername(ctx, username)
}

// LeaveSeatView returns from the seat map to criteria selection.
func (s *Session) LeaveSeatView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == StepSeats {
		s.leaveSeatViewLocked()
		s.step = StepCriteria
	}
}

// Navigate moves back to the directory, criteria selection or the reservations list.
// Seats and payment are only reachable through the flow itself.
func (s *Session) Navigate(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == StepSignedOut {
		return domain.ErrOutOfOrder
	}
	switch step {
	case StepDirectory, StepCriteria, StepCompleted:
	default:
		return domain.ErrOutOfOrder
	}
	s.leaveSeatViewLocked()
	s.pending = nil
	s.step = step
	return nil
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Step:           s.step,
		Username:       s.username,
		Routes:         slices.Clone(s.routes),
		RouteID:        s.routeID,
		Schedules:      slices.Clone(s.schedules),
		Criteria:       s.criteria,
		Seats:          s.selector.Seats(),
		Selected:       s.selector.Selected(),
		Selection:      s.selector.State(),
		Price:          s.selector.CurrentPrice(),
		MapUnavailable: s.selector.MapUnavailable(),
		Busy:           s.busy || s.checking,
	}
	if s.pending != nil {
		pending := *s.pending
		pending.Seats = slices.Clone(pending.Seats)
		view.Pending = &pending
	}
	return view
}

// leaveSeatViewLocked is the single navigation edge out of the seat map.
func (s *Session) leaveSeatViewLocked() {
	s.selector.Reset()
	s.generation++
	s.checking = false
}

func (s *Session) clearFlowLocked() {
	s.leaveSeatViewLocked()
	s.routes = nil
	s.routeID = ""
	s.schedules = nil
	s.criteria = domain.Criteria{}
	s.profile = nil
	s.pending = nil
}

// flightKey scopes collapsed requests to one signed-in epoch, so a request made with an
// older credential is never shared with a newer session.
func flightKey(epoch uint64, kind string, parts ...string) string {
	key := fmt.Sprintf("%d/%s", epoch, kind)
	for _, p := range parts {
		key += "/" + p
	}
	return key
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// fail routes an adapter error: auth expiry forces logout, anything else becomes a notice.
func (s *Session) fail(ctx context.Context, epoch uint64, code, fallback string, err error) error {
	if domain.IsAuthExpired(err) {
		s.expire(ctx, epoch)
		return err
	}
	s.notifyFailure(ctx, code, fallback, err)
	return err
}

// expire runs the forced-logout path at most once per signed-in epoch.
func (s *Session) expire(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || s.step == StepSignedOut {
		s.mu.Unlock()
		return
	}
	s.clearFlowLocked()
	s.epoch++
	s.username = ""
	s.step = StepSignedOut
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := s.credentials.Clear(ctx); err != nil {
		pkgApp.LogError(ctx, s.logger, "error clearing credential", err, nil)
	}
	pkgApp.LogInfo(ctx, s.logger, "session expired", nil)
	s.notify(ctx, domain.ErrorNotice(domain.CodeSessionExpired, "session expired, please sign in again"))

	if s.navigator != nil {
		time.AfterFunc(s.expiredDelay, s.navigator.ToEntry)
	}
}

func (s *Session) notify(ctx context.Context, notice domain.Notice) {
	if s.buses.Notices == nil {
		return
	}
	if err := s.buses.Notices.Publish(context.WithoutCancel(ctx), NewNoticeEvent(notice)); err != nil {
		pkgApp.LogError(ctx, s.logger, "error publishing notice", err, map[string]interface{}{
			"code": notice.Code,
		})
	}
}

func (s *Session) notifyFailure(ctx context.Context, code, fallback string, err error) {
	s.notify(ctx, domain.ErrorNotice(code, failureMessage(err, fallback)))
}

func failureMessage(err error, fallback string) string {
	var ve *domain.ValidationError
	var te *domain.TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.As(err, &te):
		return te.UserMessage(fallback)
	case domain.IsMalformed(err):
		return fallback
	}
	if reason, ok := domain.PaymentRejection(err); ok {
		return string(reason)
	}
	return fallback
}
