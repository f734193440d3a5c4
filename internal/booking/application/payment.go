package application

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	DefaultApprovalRate = 0.7
	DefaultPaymentDelay = 2 * time.Second
)

// ValidateSecret is the local length check done before anything touches the network.
func ValidateSecret(secret string) error {
	if len(secret) < domain.MinSecurityCodeLength {
		return domain.NewValidationError("cvv", "security code must have at least 3 digits")
	}
	return nil
}

// SimulatedGateway approves a fixed share of authorizations after a delay.
type SimulatedGateway struct {
	approvalRate float64
	delay        time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedGateway uses a time-seeded source when source is nil.
func NewSimulatedGateway(approvalRate float64, delay time.Duration, source rand.Source) *SimulatedGateway {
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	return &SimulatedGateway{approvalRate: approvalRate, delay: delay, rng: rand.New(source)}
}

func (g *SimulatedGateway) Authorize(ctx context.Context, _ int) (bool, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	roll := g.rng.Float64()
	g.mu.Unlock()
	return roll < g.approvalRate, nil
}

type paymentConfirmer struct {
	gateway  PaymentGateway
	receipts domain.ReceiptRepository
	eventBus NoticeEventBus
	now      func() time.Time
	logger   pkgApp.AppLogger
}

// NewPaymentConfirmer handles ConfirmPayment: confirm iff the entered code matches the
// reference AND the gateway approves.
func NewPaymentConfirmer(
	gateway PaymentGateway,
	receipts domain.ReceiptRepository,
	eventBus NoticeEventBus,
	logger pkgApp.AppLogger,
) pkgApp.CommandHandler[pkgDomain.Command[ConfirmPaymentData], ConfirmPaymentData] {
	return &paymentConfirmer{
		gateway:  gateway,
		receipts: receipts,
		eventBus: eventBus,
		now:      time.Now,
		logger:   logger,
	}
}

func (h *paymentConfirmer) Handle(ctx context.Context, command pkgDomain.Command[ConfirmPaymentData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	if err := ValidateSecret(data.Secret); err != nil {
		return err
	}
	if !data.Instrument.Matches(data.Secret) {
		pkgApp.LogInfo(ctx, h.logger, "payment rejected", map[string]interface{}{
			"receipt_id": data.ReceiptID,
			"reason":     domain.ReasonInvalidSecurityCode,
		})
		return &domain.PaymentRejectedError{Reason: domain.ReasonInvalidSecurityCode}
	}

	approved, err := h.gateway.Authorize(ctx, data.Amount)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "payment authorization failed", err, map[string]interface{}{
			"receipt_id": data.ReceiptID,
		})
		return err
	}

	if !approved {
		h.updateReceipt(ctx, data.ReceiptID, domain.ReceiptPaymentFailed, string(domain.ReasonDeclined))
		pkgApp.LogInfo(ctx, h.logger, "payment rejected", map[string]interface{}{
			"receipt_id": data.ReceiptID,
			"reason":     domain.ReasonDeclined,
		})
		return &domain.PaymentRejectedError{Reason: domain.ReasonDeclined}
	}

	h.updateReceipt(ctx, data.ReceiptID, domain.ReceiptPaid, "payment confirmed")
	pkgApp.LogInfo(ctx, h.logger, "payment confirmed", map[string]interface{}{
		"receipt_id": data.ReceiptID,
		"amount":     data.Amount,
	})

	if err := h.eventBus.Publish(ctx, NewNoticeEvent(domain.SuccessNotice(domain.CodePaymentConfirmed, "payment confirmed"))); err != nil {
		pkgApp.LogError(ctx, h.logger, "error publishing event", err, nil)
	}
	return nil
}

func (h *paymentConfirmer) updateReceipt(ctx context.Context, id string, status domain.ReceiptStatus, message string) {
	if id == "" {
		return
	}
	receipt, err := h.receipts.FindByID(ctx, id)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "error loading receipt", err, map[string]interface{}{"receipt_id": id})
		return
	}
	receipt.Status = status
	receipt.Message = message
	receipt.UpdatedAt = h.now()
	if err := h.receipts.Update(ctx, receipt); err != nil {
		pkgApp.LogError(ctx, h.logger, "error updating receipt", err, map[string]interface{}{"receipt_id": id})
	}
}
