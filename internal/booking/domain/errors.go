package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthExpired       = errors.New("session expired")
	ErrMalformedResponse = errors.New("malformed response")
	ErrLimitExceeded     = errors.New("seat limit reached")
	ErrBusy              = errors.New("another request is in progress")
	ErrOutOfOrder        = errors.New("step not available yet")
	ErrSuperseded        = errors.New("response superseded by a newer request")
	ErrNotFound          = errors.New("not found")
)

// ValidationError is a missing or invalid local input. It never reaches the network.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// TransportError is a network failure or a non-success HTTP status other than 401.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user: the server message when there is one.
func (e *TransportError) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

type PaymentReason string

const (
	ReasonInvalidSecurityCode PaymentReason = "invalid security code"
	ReasonDeclined            PaymentReason = "payment declined"
)

// PaymentRejectedError covers both a local secret mismatch and a gateway decline.
type PaymentRejectedError struct {
	Reason PaymentReason
}

func (e *PaymentRejectedError) Error() string { return string(e.Reason) }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthExpired(err error) bool { return errors.Is(err, ErrAuthExpired) }

func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedResponse) }

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// PaymentRejection reports the rejection reason when err is a PaymentRejectedError.
func PaymentRejection(err error) (PaymentReason, bool) {
	var pe *PaymentRejectedError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}
