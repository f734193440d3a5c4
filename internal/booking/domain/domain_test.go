package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotSortsAndDeduplicates(t *testing.T) {
	snapshot, err := NewSnapshot([]int{10, 1, 5, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 10}, snapshot.Seats())
	assert.True(t, snapshot.Contains(5))
	assert.False(t, snapshot.Contains(2))
}

func TestNewSnapshotRejectsOutOfRangeSeats(t *testing.T) {
	for _, seat := range []int{0, 41, -3} {
		_, err := NewSnapshot([]int{1, seat})
		assert.True(t, IsMalformed(err), "seat %d", seat)
	}
}

func TestCriteriaValidate(t *testing.T) {
	valid := Criteria{RouteID: "1", Date: "2025-01-10", Schedule: "08:00"}
	require.NoError(t, valid.Validate())

	cases := map[string]Criteria{
		"route_id": {Date: "2025-01-10", Schedule: "08:00"},
		"date":     {RouteID: "1", Date: "10/01/2025", Schedule: "08:00"},
		"schedule": {RouteID: "1", Date: "2025-01-10", Schedule: " "},
	}
	for field, criteria := range cases {
		var ve *ValidationError
		require.ErrorAs(t, criteria.Validate(), &ve, field)
		assert.Equal(t, field, ve.Field)
	}
}

func TestReservationRequestValidate(t *testing.T) {
	criteria := Criteria{RouteID: "1", Date: "2025-01-10", Schedule: "08:00"}

	assert.NoError(t, NewReservationRequest(criteria, []int{1, 5}).Validate())
	assert.True(t, IsValidation(NewReservationRequest(criteria, nil).Validate()))
	assert.True(t, IsValidation(NewReservationRequest(criteria, []int{1, 2, 3}).Validate()))
	assert.True(t, IsValidation(NewReservationRequest(criteria, []int{4, 4}).Validate()))
	assert.True(t, IsValidation(NewReservationRequest(criteria, []int{41}).Validate()))
	assert.True(t, IsValidation(NewReservationRequest(Criteria{RouteID: "1"}, []int{1}).Validate()))

	criteria.RouteID = "north"
	assert.True(t, IsValidation(NewReservationRequest(criteria, []int{1}).Validate()))
}

func TestReservationPayloadWireShape(t *testing.T) {
	req := NewReservationRequest(Criteria{RouteID: "3", Date: "2025-01-10", Schedule: "08:00"}, []int{1, 5})

	payload, err := req.Payload()
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bus_id":3,"seat_numbers":[1,5],"date":"2025-01-10","schedule":"08:00"}`, string(raw))
	assert.Equal(t, 86, req.Amount())
}

func TestPaymentInstrumentNeverExposesSecurityCode(t *testing.T) {
	p := NewPaymentInstrument("4111111111111111", "12/30", "123")

	raw, err := json.Marshal(Profile{Username: "ana", Instrument: p})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "123\"")
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v %s", p, p, p, p), "123")

	assert.True(t, p.Matches("123"))
	assert.False(t, p.Matches("124"))
	assert.False(t, NewPaymentInstrument("4111", "12/30", "").Matches(""))
	assert.Equal(t, "**** 1111", p.MaskedCard())
}

func TestCredentialStringIsRedacted(t *testing.T) {
	c := Credential("secret-token")
	assert.Equal(t, "[redacted]", fmt.Sprint(c))
	assert.Equal(t, "secret-token", string(c))
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("availability: %w", ErrAuthExpired)
	assert.True(t, IsAuthExpired(wrapped))

	te := &TransportError{Op: "reserve", Status: 400, Message: "Seat already reserved"}
	assert.True(t, IsTransport(fmt.Errorf("wrap: %w", te)))
	assert.Equal(t, "Seat already reserved", te.UserMessage("reservation failed"))
	assert.Equal(t, "reserve: Seat already reserved (status 400)", te.Error())

	cause := errors.New("dial tcp: refused")
	te = &TransportError{Op: "routes", Err: cause}
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, "could not load routes", te.UserMessage("could not load routes"))

	reason, ok := PaymentRejection(&PaymentRejectedError{Reason: ReasonDeclined})
	assert.True(t, ok)
	assert.Equal(t, ReasonDeclined, reason)
	_, ok = PaymentRejection(errors.New("other"))
	assert.False(t, ok)
}
