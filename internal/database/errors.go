package database

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a single-row operation matched zero rows.
var ErrNotFound = errors.New("event not found")

// InvariantViolationError reports that a single-row operation affected more
// than one row. The primary key makes this structurally impossible, so it is
// treated as a hard assertion: callers must abort the run.
type InvariantViolationError struct {
	Op     string
	PlayID string
	Rows   int64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s affected %d rows for play %q; expected at most one", e.Op, e.Rows, e.PlayID)
}
