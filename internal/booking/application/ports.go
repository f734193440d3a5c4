package application

import (
	"context"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (domain.Credential, error)
	Register(ctx context.Context, username, password, email string) (string, error)
}

type DirectoryService interface {
	Routes(ctx context.Context) ([]domain.Route, error)
	Schedules(ctx context.Context, routeID string) ([]string, error)
}

type AvailabilityService interface {
	Availability(ctx context.Context, criteria domain.Criteria) (domain.Snapshot, error)
}

type ReservationService interface {
	Reserve(ctx context.Context, req domain.ReservationRequest) (domain.ReservationAck, error)
}

type ProfileService interface {
	Profile(ctx context.Context) (domain.Profile, error)
}

// PaymentGateway stands in for the external authorization step.
type PaymentGateway interface {
	Authorize(ctx context.Context, amount int) (bool, error)
}

// Navigator is the calling shell's page switcher.
type Navigator interface {
	ToEntry()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToEntry() { f() }

type (
	RoutesQueryBus       = pkgApp.QueryBus[pkgDomain.Query[LoadRoutesData], LoadRoutesData, []domain.Route]
	SchedulesQueryBus    = pkgApp.QueryBus[pkgDomain.Query[LoadSchedulesData], LoadSchedulesData, []string]
	AvailabilityQueryBus = pkgApp.QueryBus[pkgDomain.Query[CheckAvailabilityData], CheckAvailabilityData, domain.Snapshot]
	ProfileQueryBus      = pkgApp.QueryBus[pkgDomain.Query[LoadProfileData], LoadProfileData, domain.Profile]
	ReserveCommandBus    = pkgApp.CommandBus[pkgDomain.Command[ReserveSeatsData], ReserveSeatsData]
	PaymentCommandBus    = pkgApp.CommandBus[pkgDomain.Command[ConfirmPaymentData], ConfirmPaymentData]
	NoticeEventBus       = pkgApp.EventBus[pkgDomain.Event[domain.Notice], domain.Notice]
)

// Buses groups the buses a Session dispatches on.
type Buses struct {
	Routes       RoutesQueryBus
	Schedules    SchedulesQueryBus
	Availability AvailabilityQueryBus
	Profile      ProfileQueryBus
	Reserve      ReserveCommandBus
	Payment      PaymentCommandBus
	Notices      NoticeEventBus
}
