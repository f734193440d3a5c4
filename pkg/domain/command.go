package domain

// Command represents an intent to change state somewhere in the system.
type Command[T any] interface {
	CommandName() string
	Payload() T
}
