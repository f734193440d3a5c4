package domain

import (
	"fmt"
	"slices"
	"strconv"
)

// ReservationRequest is built from the criteria and the selection at submission time.
type ReservationRequest struct {
	Criteria    Criteria
	SeatNumbers []int
}

func NewReservationRequest(criteria Criteria, seats []int) ReservationRequest {
	return ReservationRequest{Criteria: criteria, SeatNumbers: slices.Clone(seats)}
}

func (r ReservationRequest) Validate() error {
	if err := r.Criteria.Validate(); err != nil {
		return err
	}
	if _, err := r.BusID(); err != nil {
		return err
	}
	switch {
	case len(r.SeatNumbers) == 0:
		return NewValidationError("seat_numbers", "select at least one seat")
	case len(r.SeatNumbers) > MaxSeats:
		return NewValidationError("seat_numbers", fmt.Sprintf("you can select at most %d seats", MaxSeats))
	}
	seen := make(map[int]struct{}, len(r.SeatNumbers))
	for _, seat := range r.SeatNumbers {
		if seat < 1 || seat > SeatCount {
			return NewValidationError("seat_numbers", fmt.Sprintf("seat %d does not exist", seat))
		}
		if _, dup := seen[seat]; dup {
			return NewValidationError("seat_numbers", fmt.Sprintf("seat %d selected twice", seat))
		}
		seen[seat] = struct{}{}
	}
	return nil
}

// BusID is the numeric route id the reservation service expects.
func (r ReservationRequest) BusID() (int, error) {
	id, err := strconv.Atoi(r.Criteria.RouteID)
	if err != nil {
		return 0, NewValidationError("route_id", "route id must be numeric")
	}
	return id, nil
}

func (r ReservationRequest) Amount() int { return Price(len(r.SeatNumbers)) }

// ReservationPayload is the wire body of a reservation commit.
type ReservationPayload struct {
	BusID       int    `json:"bus_id"`
	SeatNumbers []int  `json:"seat_numbers"`
	Date        string `json:"date"`
	Schedule    string `json:"schedule"`
}

func (r ReservationRequest) Payload() (ReservationPayload, error) {
	if err := r.Validate(); err != nil {
		return ReservationPayload{}, err
	}
	busID, _ := r.BusID()
	return ReservationPayload{
		BusID:       busID,
		SeatNumbers: slices.Clone(r.SeatNumbers),
		Date:        r.Criteria.Date,
		Schedule:    r.Criteria.Schedule,
	}, nil
}

type ReservationAck struct {
	Message string `json:"message"`
}
