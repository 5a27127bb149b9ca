package rules

import (
	"errors"
	"fmt"
)

// ErrUnknownTable is returned by a Describer when the backing store has no
// table of the requested name.
var ErrUnknownTable = errors.New("unknown table")

// ErrSchemaMismatch matches any *SchemaMismatchError via errors.Is.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports that a rule source table could not be
// classified because the backing store does not know it.
type SchemaMismatchError struct {
	Table string
	Err   error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: cannot classify columns of table %q: %v", e.Table, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }
