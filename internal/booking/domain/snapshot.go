package domain

import (
	"fmt"
	"slices"
)

// SeatCount is the fixed seat range 1..SeatCount shared with the reservation service.
const SeatCount = 40

// Snapshot is the ordered set of seats the server reported free at the last check.
type Snapshot struct {
	seats []int
}

// NewSnapshot sorts and de-duplicates seats. Any seat outside 1..SeatCount makes the
// whole payload malformed.
func NewSnapshot(seats []int) (Snapshot, error) {
	out := make([]int, 0, len(seats))
	for _, seat := range seats {
		if seat < 1 || seat > SeatCount {
			return Snapshot{}, fmt.Errorf("%w: seat %d outside 1..%d", ErrMalformedResponse, seat, SeatCount)
		}
		out = append(out, seat)
	}
	slices.Sort(out)
	return Snapshot{seats: slices.Compact(out)}, nil
}

func (s Snapshot) Contains(seat int) bool {
	_, found := slices.BinarySearch(s.seats, seat)
	return found
}

func (s Snapshot) Seats() []int { return slices.Clone(s.seats) }

func (s Snapshot) Len() int { return len(s.seats) }
