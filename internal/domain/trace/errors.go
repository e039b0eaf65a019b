package trace

import "errors"

var (
	// ErrUnbalancedLoop is returned when a loop end has no matching begin.
	ErrUnbalancedLoop = errors.New("loop end without a matching loop begin")
	// ErrBranchingTrace is returned when two environments claim the same
	// next time step.
	ErrBranchingTrace = errors.New("more than one environment at the next time step")
	// ErrMalformed is returned for output that is not the tracer's tuple.
	ErrMalformed = errors.New("malformed trace output")
)
