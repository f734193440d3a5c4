package domain

// Event represents something that already happened in the system.
type Event[T any] interface {
	EventName() string
	Payload() T
}
