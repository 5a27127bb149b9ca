package store

import (
	"errors"
	"fmt"

	"github.com/johnharveymath/oxcovid19db/internal/rules"
)

var (
	// ErrUnavailable matches any *UnavailableError via errors.Is.
	ErrUnavailable = errors.New("backing store unavailable")
	// ErrUnknownTable is returned when the queried relation does not exist.
	ErrUnknownTable = rules.ErrUnknownTable
	// ErrInvalidBudget rejects a negative retry count.
	ErrInvalidBudget = errors.New("retry budget must be a non-negative integer")

	errDecode = errors.New("decode result")
)

// UnavailableError reports an operation that failed on every attempt.
type UnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }
