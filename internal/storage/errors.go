package storage

import (
	"errors"
	"fmt"
)

var (
	ErrQdrantUnreachable   = errors.New("qdrant server unreachable")
	ErrPostgresUnreachable = errors.New("postgres server unreachable")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
)

// domainErr wraps a domain sentinel with a formatted detail.
func domainErr(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
