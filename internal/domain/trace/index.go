package trace

import (
	"fmt"
	"strconv"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Index answers lookups over one decoded execution.
type Index struct {
	exec   m.Execution
	byTime map[int]m.Env
}

// NewIndex indexes the timed environments of an execution.
func NewIndex(exec m.Execution) *Index {
	byTime := map[int]m.Env{}

	for _, envs := range exec.Trace {
		for _, env := range envs {
			if env.HasTime {
				byTime[env.Time] = env
			}
		}
	}

	return &Index{exec: exec, byTime: byTime}
}

// Execution returns the indexed execution.
func (x *Index) Execution() m.Execution {
	return x.exec
}

// EnvsAt returns the raw environments of a line and whether it ran.
func (x *Index) EnvsAt(line int) ([]m.Env, bool) {
	envs, ok := x.exec.Trace[strconv.Itoa(line)]
	return envs, ok
}

// WritesAt returns the variables assigned on a line.
func (x *Index) WritesAt(line int) []string {
	return x.exec.Writes[strconv.Itoa(line)]
}

// LoopVars returns the variables written by a loop header line.
func (x *Index) LoopVars(loopLine string) []string {
	return x.exec.Writes[loopLine]
}

// ByTime returns every timed environment keyed by its time step.
func (x *Index) ByTime() map[int]m.Env {
	return x.byTime
}

// NextEnv returns the environment recorded one time step after env on
// env's next line.
func (x *Index) NextEnv(env m.Env) (m.Env, bool, error) {
	var (
		found m.Env
		ok    bool
	)

	for _, next := range x.exec.Trace[env.NextLine] {
		if !next.HasTime || next.Time != env.Time+1 {
			continue
		}

		if ok {
			return m.Env{}, false, fmt.Errorf("time %d on line %s: %w", next.Time, env.NextLine, ErrBranchingTrace)
		}

		found, ok = next, true
	}

	return found, ok, nil
}
