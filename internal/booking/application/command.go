package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	ReserveSeatsCommandName   = "ReserveSeats"
	ConfirmPaymentCommandName = "ConfirmPayment"
)

// ReserveSeatsData commits a selection. The handler records the receipt under ReceiptID.
type ReserveSeatsData struct {
	ReceiptID string
	Username  string
	Request   domain.ReservationRequest
}

// ConfirmPaymentData carries the entered security code. It is never serialized.
type ConfirmPaymentData struct {
	ReceiptID  string
	Amount     int
	Secret     string `json:"-"`
	Instrument domain.PaymentInstrument
}

type command[T any] struct {
	name string
	data T
}

func (c command[T]) CommandName() string { return c.name }

func (c command[T]) Payload() T { return c.data }

func NewReserveSeatsCommand(data ReserveSeatsData) pkgDomain.Command[ReserveSeatsData] {
	return command[ReserveSeatsData]{name: ReserveSeatsCommandName, data: data}
}

func NewConfirmPaymentCommand(data ConfirmPaymentData) pkgDomain.Command[ConfirmPaymentData] {
	return command[ConfirmPaymentData]{name: ConfirmPaymentCommandName, data: data}
}
