package model

// Trace maps a 1-based line number (or R<n> for return events) to the
// environments captured there, in execution order.
type Trace map[string][]Env

// Writes maps a 1-based line number to the variables assigned on it.
type Writes map[string][]string

// Execution is one decoded program run.
type Execution struct {
	ExitCode int
	Writes   Writes
	Trace    Trace
}

// Usable reports whether the trace may be consumed. Exit code 2 still
// carries the trace up to the exception.
func (e Execution) Usable() bool {
	return e.ExitCode == 0 || e.ExitCode == 2
}
