package merge

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches any *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a table that cannot take part in a merge.
type InvalidInputError struct {
	Side   string // "left" or "right"
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Side == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s table %s", e.Side, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
