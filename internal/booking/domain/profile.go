package domain

import (
	"context"
	"crypto/subtle"
	"fmt"
)

const MinSecurityCodeLength = 3

type Profile struct {
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	Instrument PaymentInstrument `json:"instrument"`
}

// PaymentInstrument is the simulated stored card. The security code is unexported so it
// cannot leak through JSON, logs or persistence.
type PaymentInstrument struct {
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	cvv        string
}

func NewPaymentInstrument(cardNumber, expiryDate, cvv string) PaymentInstrument {
	return PaymentInstrument{CardNumber: cardNumber, ExpiryDate: expiryDate, cvv: cvv}
}

func (p PaymentInstrument) HasSecurityCode() bool { return p.cvv != "" }

// Matches compares the entered code in constant time.
func (p PaymentInstrument) Matches(entered string) bool {
	if p.cvv == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(entered), []byte(p.cvv)) == 1
}

func (p PaymentInstrument) MaskedCard() string {
	if len(p.CardNumber) <= 4 {
		return p.CardNumber
	}
	return "**** " + p.CardNumber[len(p.CardNumber)-4:]
}

func (p PaymentInstrument) String() string {
	return fmt.Sprintf("card %s exp %s", p.MaskedCard(), p.ExpiryDate)
}

func (p PaymentInstrument) GoString() string {
	return fmt.Sprintf("domain.PaymentInstrument{CardNumber:%q, ExpiryDate:%q}", p.MaskedCard(), p.ExpiryDate)
}

// Credential is the opaque bearer token issued at login.
type Credential string

func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// CredentialStore holds the current credential. Load returns an empty credential when signed out.
type CredentialStore interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, credential Credential) error
	Clear(ctx context.Context) error
}
