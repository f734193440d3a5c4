package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const (
	LoadRoutesQueryName        = "LoadRoutes"
	LoadSchedulesQueryName     = "LoadSchedules"
	CheckAvailabilityQueryName = "CheckAvailability"
	LoadProfileQueryName       = "LoadProfile"
)

type LoadRoutesData struct{}

type LoadSchedulesData struct {
	RouteID string
}

type CheckAvailabilityData struct {
	Criteria domain.Criteria
}

type LoadProfileData struct{}

// query is the one private implementation behind every booking query.
type query[T any] struct {
	name string
	data T
}

func (q query[T]) QueryName() string { return q.name }

func (q query[T]) Payload() T { return q.data }

func NewLoadRoutesQuery() pkgDomain.Query[LoadRoutesData] {
	return query[LoadRoutesData]{name: LoadRoutesQueryName}
}

func NewLoadSchedulesQuery(data LoadSchedulesData) pkgDomain.Query[LoadSchedulesData] {
	return query[LoadSchedulesData]{name: LoadSchedulesQueryName, data: data}
}

func NewCheckAvailabilityQuery(data CheckAvailabilityData) pkgDomain.Query[CheckAvailabilityData] {
	return query[CheckAvailabilityData]{name: CheckAvailabilityQueryName, data: data}
}

func NewLoadProfileQuery() pkgDomain.Query[LoadProfileData] {
	return query[LoadProfileData]{name: LoadProfileQueryName}
}
