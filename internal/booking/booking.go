package booking

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
)

// Services are the collaborators the handlers call out to.
type Services struct {
	Auth         application.AuthService
	Directory    application.DirectoryService
	Availability application.AvailabilityService
	Reservations application.ReservationService
	Profiles     application.ProfileService
	Gateway      application.PaymentGateway
}

// NewHTTPServices points every collaborator at the configured API and uses the simulated gateway.
func NewHTTPServices(cfg config.Config, credentials domain.CredentialStore, logger pkgApp.AppLogger) Services {
	api := infrastructure.NewAPIClient(cfg.APIBaseURL, cfg.Endpoints, cfg.HTTPTimeout, credentials, logger)
	return Services{
		Auth:         infrastructure.NewAuthClient(api),
		Directory:    infrastructure.NewDirectoryClient(api),
		Availability: infrastructure.NewReservationClient(api),
		Reservations: infrastructure.NewReservationClient(api),
		Profiles:     infrastructure.NewProfileClient(api),
		Gateway:      application.NewSimulatedGateway(cfg.PaymentApprovalRate, cfg.PaymentDelay, nil),
	}
}

// NewInProcessBuses builds the command and query buses; notices go on the given event bus.
func NewInProcessBuses(notices application.NoticeEventBus, logger pkgApp.AppLogger) application.Buses {
	if notices == nil {
		notices = pkgInfra.NewSimpleEventBus[pkgDomain.Event[domain.Notice], domain.Notice](logger)
	}
	return application.Buses{
		Routes:       pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.LoadRoutesData], application.LoadRoutesData, []domain.Route](logger),
		Schedules:    pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.LoadSchedulesData], application.LoadSchedulesData, []string](logger),
		Availability: pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.CheckAvailabilityData], application.CheckAvailabilityData, domain.Snapshot](logger),
		Profile:      pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.LoadProfileData], application.LoadProfileData, domain.Profile](logger),
		Reserve:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.ReserveSeatsData], application.ReserveSeatsData](logger),
		Payment:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](logger),
		Notices:      notices,
	}
}

type BookingSlice struct {
	session *application.Session
	buses   application.Buses
}

func NewBookingSlice(
	buses application.Buses,
	services Services,
	credentials domain.CredentialStore,
	receipts domain.ReceiptRepository,
	navigator application.Navigator,
	sessionConfig application.SessionConfig,
	logger pkgApp.AppLogger,
) *BookingSlice {
	buses.Routes.RegisterHandler(application.LoadRoutesQueryName, application.NewLoadRoutesHandler(services.Directory, logger))
	buses.Schedules.RegisterHandler(application.LoadSchedulesQueryName, application.NewLoadSchedulesHandler(services.Directory, logger))
	buses.Availability.RegisterHandler(application.CheckAvailabilityQueryName, application.NewCheckAvailabilityHandler(services.Availability, logger))
	buses.Profile.RegisterHandler(application.LoadProfileQueryName, application.NewLoadProfileHandler(services.Profiles, logger))
	buses.Reserve.RegisterHandler(application.ReserveSeatsCommandName, application.NewReserveSeatsHandler(services.Reservations, receipts, buses.Notices, logger))
	buses.Payment.RegisterHandler(application.ConfirmPaymentCommandName, application.NewPaymentConfirmer(services.Gateway, receipts, buses.Notices, logger))
	buses.Notices.RegisterHandler(application.NoticeEventName, application.NewNoticeLogHandler(logger))

	session := application.NewSession(buses, services.Auth, credentials, receipts, navigator, sessionConfig, logger)

	return &BookingSlice{session: session, buses: buses}
}

func (s *BookingSlice) Session() *application.Session {
	return s.session
}

// OnNotice subscribes a renderer to every notice.
func (s *BookingSlice) OnNotice(render application.NoticeHandlerFunc) {
	s.buses.Notices.RegisterHandler(application.NoticeEventName, render)
}
