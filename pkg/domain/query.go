package domain

// Query represents a read request in the system.
type Query[T any] interface {
	QueryName() string
	Payload() T
}
