package stub

import (
	"errors"
	"slices"
	"sync"
)

const seatsPerBus = 40

var (
	ErrUnknownBus   = errors.New("unknown bus")
	ErrSeatTaken    = errors.New("seat already reserved")
	ErrInvalidSeats = errors.New("invalid seat numbers")
)

// Ledger holds the reserved seats of every bus, keyed by date and schedule.
type Ledger struct {
	mu       sync.Mutex
	reserved map[int]map[string]map[string]map[int]struct{}
}

func NewLedger(busIDs ...int) *Ledger {
	reserved := make(map[int]map[string]map[string]map[int]struct{}, len(busIDs))
	for _, id := range busIDs {
		reserved[id] = map[string]map[string]map[int]struct{}{}
	}
	return &Ledger{reserved: reserved}
}

// Available lists the free seats, ascending. Unknown date or schedule means every seat is free.
func (l *Ledger) Available(busID int, date, schedule string) ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dates, ok := l.reserved[busID]
	if !ok {
		return nil, ErrUnknownBus
	}
	taken := dates[date][schedule]

	seats := make([]int, 0, seatsPerBus)
	for n := 1; n <= seatsPerBus; n++ {
		if _, reserved := taken[n]; !reserved {
			seats = append(seats, n)
		}
	}
	return seats, nil
}

// Reserve books every seat or none.
func (l *Ledger) Reserve(busID int, date, schedule string, seats []int) error {
	if len(seats) == 0 {
		return ErrInvalidSeats
	}
	sorted := slices.Clone(seats)
	slices.Sort(sorted)
	if sorted[0] < 1 || sorted[len(sorted)-1] > seatsPerBus || len(slices.Compact(sorted)) != len(seats) {
		return ErrInvalidSeats
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dates, ok := l.reserved[busID]
	if !ok {
		return ErrUnknownBus
	}
	if dates[date] == nil {
		dates[date] = map[string]map[int]struct{}{}
	}
	taken := dates[date][schedule]
	if taken == nil {
		taken = map[int]struct{}{}
		dates[date][schedule] = taken
	}

	for _, n := range seats {
		if _, reserved := taken[n]; reserved {
			return ErrSeatTaken
		}
	}
	for _, n := range seats {
		taken[n] = struct{}{}
	}
	return nil
}
