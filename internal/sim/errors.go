package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector carrying NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the state norm left the configured bound.
	ErrUnstable = errors.New("sim: simulation unstable (state diverged)")

	// ErrDimensionMismatch indicates a state vector of the wrong length for
	// the vehicle.
	ErrDimensionMismatch = errors.New("sim: state dimension does not match the vehicle")

	// ErrConfig indicates an unusable simulation configuration.
	ErrConfig = errors.New("sim: invalid configuration")

	// ErrParameterBounds indicates a model parameter outside its valid range.
	ErrParameterBounds = errors.New("sim: parameter out of valid bounds")

	// ErrUnknownParameter indicates a model parameter that does not exist.
	ErrUnknownParameter = errors.New("sim: unknown parameter")

	// ErrUnknownTrajectory indicates a trajectory name with no registration.
	ErrUnknownTrajectory = errors.New("sim: unknown trajectory")
)

// StepError wraps an error with the step it occurred on.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
