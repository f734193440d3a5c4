package application

import (
	"context"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

type loadRoutesHandler struct {
	directory DirectoryService
	logger    pkgApp.AppLogger
}

func NewLoadRoutesHandler(directory DirectoryService, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[LoadRoutesData], LoadRoutesData, []domain.Route] {
	return &loadRoutesHandler{directory: directory, logger: logger}
}

func (h *loadRoutesHandler) Handle(ctx context.Context, _ pkgDomain.Query[LoadRoutesData]) ([]domain.Route, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	routes, err := h.directory.Routes(ctx)
	if err != nil {
		return nil, err
	}
	pkgApp.LogDebug(ctx, h.logger, "routes loaded", map[string]interface{}{"count": len(routes)})
	return routes, nil
}

type loadSchedulesHandler struct {
	directory DirectoryService
	logger    pkgApp.AppLogger
}

func NewLoadSchedulesHandler(directory DirectoryService, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[LoadSchedulesData], LoadSchedulesData, []string] {
	return &loadSchedulesHandler{directory: directory, logger: logger}
}

func (h *loadSchedulesHandler) Handle(ctx context.Context, query pkgDomain.Query[LoadSchedulesData]) ([]string, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	routeID := query.Payload().RouteID
	schedules, err := h.directory.Schedules(ctx, routeID)
	if err != nil {
		return nil, err
	}
	pkgApp.LogDebug(ctx, h.logger, "schedules loaded", map[string]interface{}{
		"route_id": routeID,
		"count":    len(schedules),
	})
	return schedules, nil
}

type checkAvailabilityHandler struct {
	availability AvailabilityService
	logger       pkgApp.AppLogger
}

func NewCheckAvailabilityHandler(availability AvailabilityService, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[CheckAvailabilityData], CheckAvailabilityData, domain.Snapshot] {
	return &checkAvailabilityHandler{availability: availability, logger: logger}
}

func (h *checkAvailabilityHandler) Handle(ctx context.Context, query pkgDomain.Query[CheckAvailabilityData]) (domain.Snapshot, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return domain.Snapshot{}, ctx.Err()
	}

	criteria := query.Payload().Criteria
	snapshot, err := h.availability.Availability(ctx, criteria)
	if err != nil {
		return domain.Snapshot{}, err
	}
	pkgApp.LogInfo(ctx, h.logger, "availability checked", map[string]interface{}{
		"route_id":  criteria.RouteID,
		"date":      criteria.Date,
		"schedule":  criteria.Schedule,
		"available": snapshot.Len(),
	})
	return snapshot, nil
}

type loadProfileHandler struct {
	profiles ProfileService
	logger   pkgApp.AppLogger
}

func NewLoadProfileHandler(profiles ProfileService, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[LoadProfileData], LoadProfileData, domain.Profile] {
	return &loadProfileHandler{profiles: profiles, logger: logger}
}

func (h *loadProfileHandler) Handle(ctx context.Context, _ pkgDomain.Query[LoadProfileData]) (domain.Profile, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return domain.Profile{}, ctx.Err()
	}
	return h.profiles.Profile(ctx)
}

type reserveSeatsHandler struct {
	reservations ReservationService
	receipts     domain.ReceiptRepository
	eventBus     NoticeEventBus
	now          func() time.Time
	logger       pkgApp.AppLogger
}

func NewReserveSeatsHandler(
	reservations ReservationService,
	receipts domain.ReceiptRepository,
	eventBus NoticeEventBus,
	logger pkgApp.AppLogger,
) pkgApp.CommandHandler[pkgDomain.Command[ReserveSeatsData], ReserveSeatsData] {
	return &reserveSeatsHandler{
		reservations: reservations,
		receipts:     receipts,
		eventBus:     eventBus,
		now:          time.Now,
		logger:       logger,
	}
}

func (h *reserveSeatsHandler) Handle(ctx context.Context, command pkgDomain.Command[ReserveSeatsData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	ack, err := h.reservations.Reserve(ctx, data.Request)
	if err != nil {
		return err
	}

	now := h.now()
	receipt := domain.Receipt{
		ID:        data.ReceiptID,
		Username:  data.Username,
		RouteID:   data.Request.Criteria.RouteID,
		Date:      data.Request.Criteria.Date,
		Schedule:  data.Request.Criteria.Schedule,
		Seats:     append([]int(nil), data.Request.SeatNumbers...),
		Amount:    data.Request.Amount(),
		Status:    domain.ReceiptReserved,
		Message:   ack.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// the seats are already committed server-side; a local history failure must not hide that
	if err := h.receipts.Save(ctx, receipt); err != nil {
		pkgApp.LogError(ctx, h.logger, "error saving receipt", err, map[string]interface{}{
			"receipt_id": receipt.ID,
		})
	}

	pkgApp.LogInfo(ctx, h.logger, "seats reserved", map[string]interface{}{
		"receipt_id": receipt.ID,
		"seats":      receipt.Seats,
		"amount":     receipt.Amount,
	})

	if err := h.eventBus.Publish(ctx, NewNoticeEvent(domain.SuccessNotice(domain.CodeReserved, ack.Message))); err != nil {
		pkgApp.LogError(ctx, h.logger, "error publishing event", err, nil)
	}
	return nil
}

type noticeLogHandler struct {
	logger pkgApp.AppLogger
}

// NewNoticeLogHandler logs every notice published on the event bus.
func NewNoticeLogHandler(logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[domain.Notice], domain.Notice] {
	return &noticeLogHandler{logger: logger}
}

func (h *noticeLogHandler) Handle(ctx context.Context, event pkgDomain.Event[domain.Notice]) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	notice := event.Payload()
	pkgApp.LogInfo(ctx, h.logger, "notice", map[string]interface{}{
		"level":   notice.Level,
		"code":    notice.Code,
		"message": notice.Message,
	})
	return nil
}

// NoticeHandlerFunc adapts a plain function, e.g. the shell's toast renderer, to an event handler.
type NoticeHandlerFunc func(ctx context.Context, notice domain.Notice)

func (f NoticeHandlerFunc) Handle(ctx context.Context, event pkgDomain.Event[domain.Notice]) error {
	f(ctx, event.Payload())
	return nil
}
