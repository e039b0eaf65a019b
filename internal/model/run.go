package model

import "fmt"

// RunRequest describes one interpreter invocation.
type RunRequest struct {
	Program string
	// Dir is the working directory the program is resolved against.
	Dir string
	// Values replaces variables at specific events, keyed by ValueKey.
	Values map[string]Env
}

// RunResult is the raw outcome of one interpreter invocation.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Output is the JSON tuple written by the tracer, empty if none.
	Output []byte
}

// Usable reports whether the run produced a consumable trace.
func (r RunResult) Usable() bool {
	return r.ExitCode == 0 || r.ExitCode == 2
}

// ValueKey formats the injection key for a 1-based line and a time step.
// The tracer counts lines from zero.
func ValueKey(line, time int) string {
	return fmt.Sprintf("(%d,%d)", line-1, time)
}
