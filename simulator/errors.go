package simulator

import (
	"fmt"

	"github.com/pkg/errors"
)

// SimError is a custom error type for simulation errors
type SimError struct {
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("simulation error: %s", e.Message)
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(msg string) error {
	return SimError{Message: fmt.Sprintf("invalid config: %s", msg)}
}

// Every error below marks a broken model invariant. None of them is retried:
// they abort the run and surface through Environment.Run.
var (
	ErrInvalidJob       = SimError{Message: "job arrival must be strictly before its deadline and size must be positive"}
	ErrInvalidWork      = SimError{Message: "work amount must be positive"}
	ErrNotFinished      = SimError{Message: "job not yet finished"}
	ErrUnknownPolicy    = SimError{Message: "unknown policy"}
	ErrCapacityExceeded = SimError{Message: "capacity ceiling exceeded"}
	ErrNoCapacityData   = SimError{Message: "no capacity data for time step"}
	ErrNoForecast       = SimError{Message: "no forecast issued at time"}
	ErrArrivalOrder     = SimError{Message: "arrivals must be in non-decreasing time order"}
)

// wrapf annotates a sentinel with context and a stack trace while keeping it
// matchable through errors.Is.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
