package infrastructure

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoHandler is returned by the buses when nothing is registered under a name.
var ErrNoHandler = errors.New("no handler registered")

func GenerateUUID() string {
	return uuid.New().String()
}
