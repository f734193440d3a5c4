package domain

import (
	"slices"
	"sync"
)

const (
	MaxSeats     = 2
	PricePerSeat = 43
)

type SelectionState int

const (
	StateEmpty SelectionState = iota
	StatePartiallySelected
	StateFull
)

func (s SelectionState) String() string {
	switch s {
	case StatePartiallySelected:
		return "partially_selected"
	case StateFull:
		return "full"
	default:
		return "empty"
	}
}

type ToggleOutcome int

const (
	// ToggleIgnored: the seat is not in the current snapshot.
	ToggleIgnored ToggleOutcome = iota
	ToggleDeselected
	ToggleLimitReached
	ToggleSelected
)

func (o ToggleOutcome) String() string {
	switch o {
	case ToggleDeselected:
		return "deselected"
	case ToggleLimitReached:
		return "limit_reached"
	case ToggleSelected:
		return "selected"
	default:
		return "ignored"
	}
}

type SeatStatus string

const (
	SeatReserved  SeatStatus = "reserved"
	SeatAvailable SeatStatus = "available"
	SeatSelected  SeatStatus = "selected"
)

type SeatView struct {
	Number int        `json:"number"`
	Status SeatStatus `json:"status"`
}

// Price is the quote for n seats.
func Price(n int) int { return n * PricePerSeat }

// SeatSelector owns the availability snapshot and the tentative selection.
// All mutation goes through its methods; it is safe for concurrent use.
type SeatSelector struct {
	mu             sync.RWMutex
	snapshot       Snapshot
	loaded         bool
	mapUnavailable bool
	selected       []int
}

func NewSeatSelector() *SeatSelector {
	return &SeatSelector{}
}

// Load replaces the snapshot wholesale and clears the selection.
func (s *SeatSelector) Load(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.loaded = true
	s.mapUnavailable = false
	s.selected = nil
}

// MarkUnavailable flags the "map unavailable" fallback. Snapshot and selection are untouched.
func (s *SeatSelector) MarkUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapUnavailable = true
}

func (s *SeatSelector) Toggle(seat int) ToggleOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || !s.snapshot.Contains(seat) {
		return ToggleIgnored
	}
	if i, found := slices.BinarySearch(s.selected, seat); found {
		s.selected = slices.Delete(s.selected, i, i+1)
		return ToggleDeselected
	}
	if len(s.selected) >= MaxSeats {
		return ToggleLimitReached
	}
	i, _ := slices.BinarySearch(s.selected, seat)
	s.selected = slices.Insert(s.selected, i, seat)
	return ToggleSelected
}

// Reset returns to Empty and drops the snapshot-derived map. Calling it twice is harmless.
func (s *SeatSelector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{}
	s.loaded = false
	s.mapUnavailable = false
	s.selected = nil
}

func (s *SeatSelector) CurrentPrice() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Price(len(s.selected))
}

func (s *SeatSelector) State() SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateFor(len(s.selected))
}

func stateFor(n int) SelectionState {
	switch {
	case n >= MaxSeats:
		return StateFull
	case n > 0:
		return StatePartiallySelected
	default:
		return StateEmpty
	}
}

func (s *SeatSelector) Selected() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

func (s *SeatSelector) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *SeatSelector) MapUnavailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapUnavailable
}

// Seats renders the full 1..SeatCount map. Nil when no snapshot is loaded.
func (s *SeatSelector) Seats() []SeatView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil
	}

	views := make([]SeatView, 0, SeatCount)
	for n := 1; n <= SeatCount; n++ {
		status := SeatReserved
		if s.snapshot.Contains(n) {
			status = SeatAvailable
		}
		if _, found := slices.BinarySearch(s.selected, n); found {
			status = SeatSelected
		}
		views = append(views, SeatView{Number: n, Status: status})
	}
	return views
}
