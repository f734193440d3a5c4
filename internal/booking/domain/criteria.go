package domain

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Criteria scopes an availability check and the reservation built from it.
type Criteria struct {
	RouteID  string `json:"route_id"`
	Date     string `json:"date"`
	Schedule string `json:"schedule"`
}

func (c Criteria) Validate() error {
	if strings.TrimSpace(c.RouteID) == "" {
		return NewValidationError("route_id", "select a route")
	}
	if strings.TrimSpace(c.Date) == "" {
		return NewValidationError("date", "select a date")
	}
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return NewValidationError("date", "date must be formatted as YYYY-MM-DD")
	}
	if strings.TrimSpace(c.Schedule) == "" {
		return NewValidationError("schedule", "select a schedule")
	}
	return nil
}

// Key identifies the criteria, e.g. to collapse duplicate availability checks.
func (c Criteria) Key() string {
	return c.RouteID + "|" + c.Date + "|" + c.Schedule
}

type Route struct {
	ID          int    `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}
