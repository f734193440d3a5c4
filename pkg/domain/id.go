package domain

// IDGenerator produces unique identifiers for new entities.
type IDGenerator[T any] func() T
