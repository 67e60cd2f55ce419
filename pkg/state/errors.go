package state

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrStateParse is matched by every StateParseError.
	ErrStateParse = errors.New("malformed state")
	// ErrAmbiguousState is returned when more than one live object exists for a kind.
	ErrAmbiguousState = errors.New("ambiguous state")
	// ErrAlreadyApplied is returned when the series already holds the snapshot date.
	ErrAlreadyApplied = errors.New("snapshot already applied")
	// ErrDuplicateSeriesKey is returned when a series log repeats a date.
	ErrDuplicateSeriesKey = errors.New("duplicate series key")
)

// StateParseError reports a prior state object that could not be decoded.
// It is recovered by treating the prior aggregate as absent.
type StateParseError struct {
	Err  error
	Kind Kind
	Name string
}

// Error implements error.
func (e *StateParseError) Error() string {
	return fmt.Sprintf("parse %s state %s: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *StateParseError) Unwrap() error { return e.Err }

// Is matches ErrStateParse.
func (e *StateParseError) Is(target error) bool { return target == ErrStateParse }
