package domain

import (
	"context"
	"time"
)

type ReceiptStatus string

const (
	ReceiptReserved      ReceiptStatus = "reserved"
	ReceiptPaid          ReceiptStatus = "paid"
	ReceiptPaymentFailed ReceiptStatus = "payment_failed"
)

// Receipt is the local record of a committed reservation, listed in the reservations view.
type Receipt struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	Username  string        `json:"username" gorm:"index"`
	RouteID   string        `json:"route_id"`
	Date      string        `json:"date"`
	Schedule  string        `json:"schedule"`
	Seats     []int         `json:"seats" gorm:"serializer:json"`
	Amount    int           `json:"amount"`
	Status    ReceiptStatus `json:"status"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Receipt) TableName() string { return "booking_receipts" }

func (r Receipt) Criteria() Criteria {
	return Criteria{RouteID: r.RouteID, Date: r.Date, Schedule: r.Schedule}
}

type ReceiptRepository interface {
	Save(ctx context.Context, receipt Receipt) error
	Update(ctx context.Context, receipt Receipt) error
	FindByID(ctx context.Context, id string) (Receipt, error)
	FindByUsername(ctx context.Context, username string) ([]Receipt, error)
}
