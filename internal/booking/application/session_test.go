package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
)

var tripCriteria = domain.Criteria{RouteID: "1", Date: "2025-01-10", Schedule: "08:00"}

type fakeAuth struct {
	token domain.Credential
	err   error
}

func (f *fakeAuth) Login(context.Context, string, string) (domain.Credential, error) {
	return f.token, f.err
}

func (f *fakeAuth) Register(context.Context, string, string, string) (string, error) {
	return "User registered successfully", f.err
}

type fakeDirectory struct {
	mu        sync.Mutex
	routes    []domain.Route
	schedules map[string][]string
	err       error
}

func (f *fakeDirectory) Routes(context.Context) ([]domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.routes, f.err
}

func (f *fakeDirectory) Schedules(_ context.Context, routeID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedules[routeID], f.err
}

type fakeAvailability struct {
	mu     sync.Mutex
	seats  map[string][]int
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  int32
	called chan string
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{
		seats:  map[string][]int{},
		errs:   map[string]error{},
		gates:  map[string]chan struct{}{},
		called: make(chan string, 16),
	}
}

func (f *fakeAvailability) Availability(ctx context.Context, criteria domain.Criteria) (domain.Snapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gates[criteria.Key()]
	seats, err := f.seats[criteria.Key()], f.errs[criteria.Key()]
	f.mu.Unlock()

	f.called <- criteria.Key()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Snapshot{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(seats)
}

// awaitCalls blocks until every key has reached the service at least once.
func (f *fakeAvailability) awaitCalls(t *testing.T, keys ...string) {
	t.Helper()
	pending := map[string]bool{}
	for _, k := range keys {
		pending[k] = true
	}
	timeout := time.After(time.Second)
	for len(pending) > 0 {
		select {
		case key := <-f.called:
			delete(pending, key)
		case <-timeout:
			t.Fatalf("availability never called for %v", pending)
		}
	}
}

type fakeReservations struct {
	mu       sync.Mutex
	requests []domain.ReservationRequest
	err      error
	gate     chan struct{}
}

func (f *fakeReservations) Reserve(ctx context.Context, req domain.ReservationRequest) (domain.ReservationAck, error) {
	f.mu.Lock()
	gate, err := f.gate, f.err
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.ReservationAck{}, err
	}
	return domain.ReservationAck{Message: "Seats reserved successfully"}, nil
}

type fakeProfiles struct {
	calls int32
	err   error
}

func (f *fakeProfiles) Profile(context.Context) (domain.Profile, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return domain.Profile{}, f.err
	}
	return domain.Profile{
		Username:   "ana",
		Email:      "ana@example.com",
		Instrument: domain.NewPaymentInstrument("4111111111111111", "12/30", "123"),
	}, nil
}

type fakeGateway struct {
	approve bool
	calls   int32
}

func (f *fakeGateway) Authorize(context.Context, int) (bool, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.approve, nil
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (r *noticeRecorder) record(_ context.Context, n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for _, n := range r.notices {
		codes = append(codes, n.Code)
	}
	return codes
}

func (r *noticeRecorder) last(code string) (domain.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notices) - 1; i >= 0; i-- {
		if r.notices[i].Code == code {
			return r.notices[i], true
		}
	}
	return domain.Notice{}, false
}

type harness struct {
	session      *Session
	auth         *fakeAuth
	directory    *fakeDirectory
	availability *fakeAvailability
	reservations *fakeReservations
	profiles     *fakeProfiles
	gateway      *fakeGateway
	credentials  *infrastructure.MemoryCredentialStore
	receipts     *infrastructure.InMemoryReceiptRepository
	notices      *noticeRecorder
	navigations  int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := pkgApp.NopLogger{}
	h := &harness{
		auth: &fakeAuth{token: "jwt"},
		directory: &fakeDirectory{
			routes:    []domain.Route{{ID: 1, Origin: "Lisboa", Destination: "Porto"}},
			schedules: map[string][]string{"1": {"08:00", "14:30"}},
		},
		availability: newFakeAvailability(),
		reservations: &fakeReservations{},
		profiles:     &fakeProfiles{},
		gateway:      &fakeGateway{approve: true},
		credentials:  infrastructure.NewMemoryCredentialStore(),
		receipts:     infrastructure.NewInMemoryReceiptRepository(logger),
		notices:      &noticeRecorder{},
	}
	h.availability.seats[tripCriteria.Key()] = []int{1, 5, 10}

	buses := Buses{
		Routes:       pkgInfra.NewSimpleQueryBus[pkgDomain.Query[LoadRoutesData], LoadRoutesData, []domain.Route](logger),
		Schedules:    pkgInfra.NewSimpleQueryBus[pkgDomain.Query[LoadSchedulesData], LoadSchedulesData, []string](logger),
		Availability: pkgInfra.NewSimpleQueryBus[pkgDomain.Query[CheckAvailabilityData], CheckAvailabilityData, domain.Snapshot](logger),
		Profile:      pkgInfra.NewSimpleQueryBus[pkgDomain.Query[LoadProfileData], LoadProfileData, domain.Profile](logger),
		Reserve:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[ReserveSeatsData], ReserveSeatsData](logger),
		Payment:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[ConfirmPaymentData], ConfirmPaymentData](logger),
		Notices:      pkgInfra.NewSimpleEventBus[pkgDomain.Event[domain.Notice], domain.Notice](logger),
	}
	buses.Routes.RegisterHandler(LoadRoutesQueryName, NewLoadRoutesHandler(h.directory, logger))
	buses.Schedules.RegisterHandler(LoadSchedulesQueryName, NewLoadSchedulesHandler(h.directory, logger))
	buses.Availability.RegisterHandler(CheckAvailabilityQueryName, NewCheckAvailabilityHandler(h.availability, logger))
	buses.Profile.RegisterHandler(LoadProfileQueryName, NewLoadProfileHandler(h.profiles, logger))
	buses.Reserve.RegisterHandler(ReserveSeatsCommandName, NewReserveSeatsHandler(h.reservations, h.receipts, buses.Notices, logger))
	buses.Payment.RegisterHandler(ConfirmPaymentCommandName, NewPaymentConfirmer(h.gateway, h.receipts, buses.Notices, logger))
	buses.Notices.RegisterHandler(NoticeEventName, NoticeHandlerFunc(h.notices.record))

	var ids int32
	h.session = NewSession(buses, h.auth, h.credentials, h.receipts,
		NavigatorFunc(func() { atomic.AddInt32(&h.navigations, 1) }),
		SessionConfig{
			ExpiredDelay: 10 * time.Millisecond,
			IDGenerator:  func() string { return fmt.Sprintf("receipt-%d", atomic.AddInt32(&ids, 1)) },
		},
		logger,
	)
	return h
}

// toSeats drives the flow up to a loaded seat map.
func (h *harness) toSeats(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.session.Login(ctx, "ana", "secret"))
	_, err := h.session.LoadRoutes(ctx)
	require.NoError(t, err)
	_, err = h.session.SelectRoute(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, h.session.CheckAvailability(ctx, tripCriteria))
	require.Equal(t, StepSeats, h.session.View().Step)
}

func TestSessionHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toSeats(t)

	assert.Equal(t, domain.ToggleSelected, h.session.ToggleSeat(ctx, 1))
	assert.Equal(t, 43, h.session.View().Price)
	assert.Equal(t, domain.ToggleSelected, h.session.ToggleSeat(ctx, 5))
	assert.Equal(t, 86, h.session.View().Price)
	assert.Equal(t, domain.ToggleLimitReached, h.session.ToggleSeat(ctx, 10))
	assert.Equal(t, []int{1, 5}, h.session.View().Selected)

	limit, ok := h.notices.last(domain.CodeSeatLimit)
	require.True(t, ok)
	assert.Equal(t, domain.NoticeInfo, limit.Level)

	receipt, err := h.session.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, receipt.Seats)
	assert.Equal(t, 86, receipt.Amount)
	assert.Equal(t, domain.ReceiptReserved, receipt.Status)

	view := h.session.View()
	assert.Equal(t, StepPayment, view.Step)
	assert.Empty(t, view.Selected)
	assert.Zero(t, view.Price)
	assert.Equal(t, domain.StateEmpty, view.Selection)
	require.NotNil(t, view.Pending)

	require.Len(t, h.reservations.requests, 1)
	busID, err := h.reservations.requests[0].BusID()
	require.NoError(t, err)
	assert.Equal(t, 1, busID)

	require.NoError(t, h.session.ConfirmPayment(ctx, "123"))
	assert.Equal(t, StepCompleted, h.session.View().Step)
	assert.Contains(t, h.notices.codes(), domain.CodePaymentConfirmed)

	receipts, err := h.session.Reservations(ctx)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, domain.ReceiptPaid, receipts[0].Status)
}

func (h *harness) toPayment(t *testing.T) {
	t.Helper()
	h.toSeats(t)
	h.session.ToggleSeat(context.Background(), 1)
	_, err := h.session.Reserve(context.Background())
	require.NoError(t, err)
}

func TestSessionInvalidSecurityCodeSkipsGateway(t *testing.T) {
	h := newHarness(t)
	h.toPayment(t)

	err := h.session.ConfirmPayment(context.Background(), "999")
	reason, rejected := domain.PaymentRejection(err)
	require.True(t, rejected)
	assert.Equal(t, domain.ReasonInvalidSecurityCode, reason)
	assert.Zero(t, atomic.LoadInt32(&h.gateway.calls))

	notice, ok := h.notices.last(domain.CodePaymentRejected)
	require.True(t, ok)
	assert.Equal(t, "invalid security code", notice.Message)
	assert.Equal(t, StepPayment, h.session.View().Step)
}

func TestSessionShortSecretIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.toPayment(t)

	err := h.session.ConfirmPayment(context.Background(), "12")
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, atomic.LoadInt32(&h.profiles.calls))
	assert.Zero(t, atomic.LoadInt32(&h.gateway.calls))
}

func TestSessionDeclinedPaymentKeepsReservation(t *testing.T) {
	h := newHarness(t)
	h.gateway.approve = false
	h.toPayment(t)

	err := h.session.ConfirmPayment(context.Background(), "123")
	reason, rejected := domain.PaymentRejection(err)
	require.True(t, rejected)
	assert.Equal(t, domain.ReasonDeclined, reason)

	view := h.session.View()
	assert.Equal(t, StepPayment, view.Step)
	require.NotNil(t, view.Pending)
	assert.Equal(t, domain.ReceiptPaymentFailed, view.Pending.Status)

	stored, err := h.receipts.FindByID(context.Background(), view.Pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptPaymentFailed, stored.Status)
	assert.Len(t, h.reservations.requests, 1)

	// the profile is fetched once per session
	h.gateway.approve = true
	require.NoError(t, h.session.ConfirmPayment(context.Background(), "123"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.profiles.calls))
}

func TestSessionAuthExpiredRedirectsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)

	other := domain.Criteria{RouteID: "1", Date: "2025-01-11", Schedule: "08:00"}
	gate := make(chan struct{})
	h.availability.mu.Lock()
	h.availability.errs[tripCriteria.Key()] = fmt.Errorf("availability: %w", domain.ErrAuthExpired)
	h.availability.errs[other.Key()] = fmt.Errorf("availability: %w", domain.ErrAuthExpired)
	h.availability.gates[tripCriteria.Key()] = gate
	h.availability.gates[other.Key()] = gate
	h.availability.mu.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, c := range []domain.Criteria{tripCriteria, other} {
		wg.Add(1)
		go func(c domain.Criteria) {
			defer wg.Done()
			errs <- h.session.CheckAvailability(context.Background(), c)
		}(c)
	}
	h.availability.awaitCalls(t, tripCriteria.Key(), other.Key())
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.True(t, domain.IsAuthExpired(err))
	}

	_, err := h.session.LoadRoutes(context.Background())
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&h.navigations) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.navigations))

	cred, err := h.credentials.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cred)
	assert.Equal(t, StepSignedOut, h.session.View().Step)

	expired := 0
	for _, code := range h.notices.codes() {
		if code == domain.CodeSessionExpired {
			expired++
		}
	}
	assert.Equal(t, 1, expired)
}

func TestSessionDiscardsSupersededAvailability(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)

	slow := domain.Criteria{RouteID: "1", Date: "2025-02-01", Schedule: "08:00"}
	gate := make(chan struct{})
	h.availability.mu.Lock()
	h.availability.seats[slow.Key()] = []int{30}
	h.availability.gates[slow.Key()] = gate
	h.availability.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.session.CheckAvailability(context.Background(), slow) }()
	h.availability.awaitCalls(t, slow.Key())

	require.NoError(t, h.session.CheckAvailability(context.Background(), tripCriteria))
	close(gate)
	assert.ErrorIs(t, <-done, domain.ErrSuperseded)

	view := h.session.View()
	assert.Equal(t, tripCriteria, view.Criteria)
	assert.Equal(t, domain.SeatReserved, view.Seats[29].Status)
	assert.Equal(t, domain.SeatAvailable, view.Seats[0].Status)
}

func TestSessionMalformedAvailabilityKeepsSelection(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)
	h.session.ToggleSeat(context.Background(), 5)

	broken := domain.Criteria{RouteID: "1", Date: "2025-03-01", Schedule: "08:00"}
	h.availability.errs[broken.Key()] = fmt.Errorf("availability: %w", domain.ErrMalformedResponse)

	err := h.session.CheckAvailability(context.Background(), broken)
	assert.True(t, domain.IsMalformed(err))

	view := h.session.View()
	assert.True(t, view.MapUnavailable)
	assert.Equal(t, []int{5}, view.Selected)
	notice, ok := h.notices.last(domain.CodeMapUnavailable)
	require.True(t, ok)
	assert.Equal(t, "could not load seat map", notice.Message)
}

func TestSessionCriteriaValidationIssuesNoRequest(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)
	before := atomic.LoadInt32(&h.availability.calls)

	err := h.session.CheckAvailability(context.Background(), domain.Criteria{RouteID: "1", Date: "2025-01-10"})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, before, atomic.LoadInt32(&h.availability.calls))
	assert.Contains(t, h.notices.codes(), domain.CodeInvalidInput)
}

func TestSessionReserveRejectsOverlap(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)
	h.session.ToggleSeat(context.Background(), 1)

	gate := make(chan struct{})
	h.reservations.gate = gate

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Reserve(context.Background())
		done <- err
	}()
	assert.Eventually(t, func() bool { return h.session.View().Busy }, time.Second, time.Millisecond)

	_, err := h.session.Reserve(context.Background())
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.ToggleIgnored, h.session.ToggleSeat(context.Background(), 5))

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, h.session.View().Busy)
	assert.Len(t, h.reservations.requests, 1)
}

func TestSessionReserveFailureKeepsSelection(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)
	h.session.ToggleSeat(context.Background(), 10)
	h.reservations.err = &domain.TransportError{Op: "reserve", Status: 400, Message: "Seat already reserved"}

	_, err := h.session.Reserve(context.Background())
	assert.True(t, domain.IsTransport(err))

	view := h.session.View()
	assert.Equal(t, StepSeats, view.Step)
	assert.Equal(t, []int{10}, view.Selected)
	notice, ok := h.notices.last(domain.CodeReservationError)
	require.True(t, ok)
	assert.Equal(t, "Seat already reserved", notice.Message)
}

func TestSessionEnforcesStepOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.session.LoadRoutes(ctx)
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	require.NoError(t, h.session.Login(ctx, "ana", "secret"))
	_, err = h.session.Reserve(ctx)
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	assert.ErrorIs(t, h.session.ConfirmPayment(ctx, "123"), domain.ErrOutOfOrder)
	assert.Equal(t, domain.ToggleIgnored, h.session.ToggleSeat(ctx, 1))
	assert.ErrorIs(t, h.session.Navigate(StepPayment), domain.ErrOutOfOrder)

	_, err = h.session.LoadRoutes(ctx)
	require.NoError(t, err)
	require.NoError(t, h.session.CheckAvailability(ctx, tripCriteria))
	_, err = h.session.Reserve(ctx)
	assert.True(t, domain.IsValidation(err), "reserve with no seats selected")
	assert.Empty(t, h.reservations.requests)
}

func TestSessionNavigationResetsSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toSeats(t)

	h.session.ToggleSeat(ctx, 1)
	h.session.LeaveSeatView()
	view := h.session.View()
	assert.Equal(t, StepCriteria, view.Step)
	assert.Empty(t, view.Selected)
	assert.Nil(t, view.Seats)

	require.NoError(t, h.session.CheckAvailability(ctx, tripCriteria))
	h.session.ToggleSeat(ctx, 5)
	_, err := h.session.SelectRoute(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, h.session.View().Selected)

	require.NoError(t, h.session.CheckAvailability(ctx, tripCriteria))
	h.session.ToggleSeat(ctx, 5)
	require.NoError(t, h.session.Navigate(StepDirectory))
	assert.Zero(t, h.session.View().Price)
}

func TestSessionLogoutClearsCredential(t *testing.T) {
	h := newHarness(t)
	h.toSeats(t)

	require.NoError(t, h.session.Logout(context.Background()))
	cred, err := h.credentials.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cred)
	assert.Equal(t, StepSignedOut, h.session.View().Step)
	assert.Zero(t, atomic.LoadInt32(&h.navigations))
}

func TestSessionEmptyDirectoryNotices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.directory.routes = []domain.Route{}
	h.directory.schedules = map[string][]string{}

	require.NoError(t, h.session.Login(ctx, "ana", "secret"))
	routes, err := h.session.LoadRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, routes)
	schedules, err := h.session.SelectRoute(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, schedules)

	assert.Contains(t, h.notices.codes(), domain.CodeNoRoutes)
	assert.Contains(t, h.notices.codes(), domain.CodeNoSchedules)
}

func TestSessionLoginFailure(t *testing.T) {
	h := newHarness(t)
	h.auth.err = &domain.TransportError{Op: "login", Status: 401, Message: "Invalid credentials"}

	err := h.session.Login(context.Background(), "ana", "bad")
	assert.Error(t, err)
	assert.Equal(t, StepSignedOut, h.session.View().Step)
	notice, ok := h.notices.last(domain.CodeAuthFailed)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", notice.Message)
}

func TestSessionRegister(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Register(context.Background(), "ana", "secret", "ana@example.com"))
	assert.Contains(t, h.notices.codes(), domain.CodeRegistered)

	h.auth.err = errors.New("boom")
	assert.Error(t, h.session.Register(context.Background(), "ana", "secret", "ana@example.com"))
}

func TestSessionRejectedRequestDoesNotLeakIntoNewSignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toSeats(t)

	gate := make(chan struct{})
	h.availability.mu.Lock()
	h.availability.errs[tripCriteria.Key()] = fmt.Errorf("availability: %w", domain.ErrAuthExpired)
	h.availability.gates[tripCriteria.Key()] = gate
	h.availability.mu.Unlock()

	old := make(chan error, 1)
	go func() { old <- h.session.CheckAvailability(ctx, tripCriteria) }()
	h.availability.awaitCalls(t, tripCriteria.Key())

	h.availability.mu.Lock()
	delete(h.availability.errs, tripCriteria.Key())
	delete(h.availability.gates, tripCriteria.Key())
	h.availability.mu.Unlock()

	require.NoError(t, h.session.Login(ctx, "ana", "secret"))
	_, err := h.session.LoadRoutes(ctx)
	require.NoError(t, err)
	_, err = h.session.SelectRoute(ctx, "1")
	require.NoError(t, err)

	fresh := make(chan error, 1)
	go func() { fresh <- h.session.CheckAvailability(ctx, tripCriteria) }()
	h.availability.awaitCalls(t, tripCriteria.Key())
	require.NoError(t, <-fresh)

	close(gate)
	assert.True(t, domain.IsAuthExpired(<-old))

	view := h.session.View()
	assert.Equal(t, StepSeats, view.Step)
	assert.Equal(t, "ana", view.Username)
	assert.NotContains(t, h.notices.codes(), domain.CodeSessionExpired)

	cred, err := h.credentials.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Credential("jwt"), cred)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&h.navigations))
}

func TestSessionReserveWaitsForOutstandingAvailability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toSeats(t)
	require.Equal(t, domain.ToggleSelected, h.session.ToggleSeat(ctx, 1))

	later := domain.Criteria{RouteID: "1", Date: "2025-02-01", Schedule: "08:00"}
	gate := make(chan struct{})
	h.availability.mu.Lock()
	h.availability.seats[later.Key()] = []int{2, 3}
	h.availability.gates[later.Key()] = gate
	h.availability.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.session.CheckAvailability(ctx, later) }()
	h.availability.awaitCalls(t, later.Key())

	_, err := h.session.Reserve(ctx)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.ToggleIgnored, h.session.ToggleSeat(ctx, 5))
	assert.True(t, h.session.View().Busy)
	assert.Empty(t, h.reservations.requests)

	close(gate)
	require.NoError(t, <-done)

	view := h.session.View()
	assert.Equal(t, StepSeats, view.Step)
	assert.Equal(t, later, view.Criteria)
	assert.Empty(t, view.Selected)
	assert.False(t, view.Busy)

	require.Equal(t, domain.ToggleSelected, h.session.ToggleSeat(ctx, 2))
	receipt, err := h.session.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, later, receipt.Criteria())
	assert.Equal(t, []int{2}, receipt.Seats)
}
