package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mouse-blink/pbox/internal/domain/trace"
	m "github.com/mouse-blink/pbox/internal/model"
)

// exampleModel is the table of input/output examples collected for one
// synthesis target line.
type exampleModel struct {
	line     int
	outVars  []string
	boxVars  []string
	allEnvs  []m.Env
	prevEnvs map[int]m.Env
	envs     []m.Env
	included map[int]struct{}
	valid    []bool
	table    *m.Table
}

func newExampleModel(line int, outVars, boxVars []string) *exampleModel {
	return &exampleModel{
		line:     line,
		outVars:  outVars,
		boxVars:  boxVars,
		prevEnvs: map[int]m.Env{},
		included: map[int]struct{}{},
	}
}

// updateAllEnvs collects every environment of exec and maps each time
// step to the closest earlier timed environment.
func (em *exampleModel) updateAllEnvs(exec m.Execution) {
	keys := make([]string, 0, len(exec.Trace))
	for k := range exec.Trace {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, compareLineKeys)

	em.allEnvs = em.allEnvs[:0]
	for _, k := range keys {
		em.allEnvs = append(em.allEnvs, exec.Trace[k]...)
	}

	em.prevEnvs = map[int]m.Env{}

	for _, start := range em.allEnvs {
		if !start.HasTime {
			continue
		}

		best, found := 0, false

		for _, env := range em.allEnvs {
			if !env.HasTime {
				continue
			}

			d := start.Time - env.Time
			if d > 0 && (!found || d < start.Time-best) {
				best, found = env.Time, true
				em.prevEnvs[start.Time] = env

				if d == 1 {
					break
				}
			}
		}
	}
}

// updateBoxContent rebuilds the rows from the environments of the target
// line and recomputes which of them are editable.
func (em *exampleModel) updateBoxContent(exec m.Execution) error {
	raw, _ := trace.NewIndex(exec).EnvsAt(em.line)

	flat, err := trace.Flatten(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", em.line, err)
	}

	em.envs = flat

	p := Projection{OutVars: em.outVars, PrevEnvs: em.prevEnvs}
	vars := dropSynthesizedVars(NewVarSet(em.boxVars...), em.envs, p)
	em.table = buildTable(em.line, vars, em.envs, p)
	em.updateRowsValid()

	return nil
}

// updateRowsValid marks the rows whose output cells may be edited. Rows
// are reachable when they start a loop or follow an included row; inside
// a conditional every row that ran is reachable.
func (em *exampleModel) updateRowsValid() {
	valid := make([]bool, len(em.envs))

	if slices.ContainsFunc(em.envs, func(e m.Env) bool { return e.Kind == m.EnvFiller }) {
		for i, e := range em.envs {
			valid[i] = e.Kind != m.EnvFiller
		}
	} else {
		for i, e := range em.envs {
			valid[i] = e.Iter == "" || e.Iter == "0" || (i > 0 && em.isIncluded(em.envs[i-1]))

			if !valid[i] && e.HasTime {
				delete(em.included, e.Time)
			}
		}
	}

	switch {
	case len(valid) == 0:
		valid = []bool{true}
	case !slices.Contains(valid, true):
		valid[0] = true
	}

	em.valid = valid

	if em.table == nil {
		return
	}

	for r := range em.table.Rows {
		row := &em.table.Rows[r]
		row.Included = r < len(em.envs) && em.isIncluded(em.envs[r])

		for c := range row.Cells {
			row.Cells[c].Editable = r < len(valid) && valid[r] && em.table.Columns[c].Role == m.ColumnOut
		}
	}
}

func (em *exampleModel) isIncluded(e m.Env) bool {
	if !e.HasTime {
		return false
	}

	_, ok := em.included[e.Time]

	return ok
}

// values returns the included environments keyed for injection.
func (em *exampleModel) values() map[string]m.Env {
	values := map[string]m.Env{}

	for _, e := range em.envs {
		if em.isIncluded(e) {
			values[m.ValueKey(em.line, e.Time)] = e
		}
	}

	return values
}

// partition splits the rows into the examples that must hold and the
// optional ones.
func (em *exampleModel) partition() (envs, optEnvs []m.Env) {
	for _, e := range em.envs {
		if em.isIncluded(e) {
			envs = append(envs, e)
		} else {
			optEnvs = append(optEnvs, e)
		}
	}

	return envs, optEnvs
}

// previous returns the predecessor map keyed by decimal time.
func (em *exampleModel) previous() map[string]m.Env {
	prev := make(map[string]m.Env, len(em.prevEnvs))
	for t, e := range em.prevEnvs {
		prev[strconv.Itoa(t)] = e
	}

	return prev
}

func (em *exampleModel) row(idx int) (*m.Env, error) {
	if idx < 0 || idx >= len(em.envs) {
		return nil, fmt.Errorf("row %d out of range", idx)
	}

	return &em.envs[idx], nil
}

// toggleOn reports whether toggling row idx includes it. Rows without a
// time step are always included.
func (em *exampleModel) toggleOn(idx int, force *bool) bool {
	e, err := em.row(idx)
	if err != nil {
		return false
	}

	switch {
	case !e.HasTime:
		return true
	case force != nil:
		return *force
	}

	return !em.isIncluded(*e)
}

func (em *exampleModel) setValue(idx int, name, value string) {
	if e, err := em.row(idx); err == nil {
		e.Set(name, value)
	}
}

func (em *exampleModel) include(idx int, on bool) {
	e, err := em.row(idx)
	if err != nil || !e.HasTime {
		return
	}

	if on {
		em.included[e.Time] = struct{}{}
	} else {
		delete(em.included, e.Time)
	}
}

// removeInvalidTimes drops an included row that can no longer be edited.
// It reports whether the row should stay highlighted, and false for ok
// when the row was not included.
func (em *exampleModel) removeInvalidTimes(idx int, editable bool) (highlight, ok bool) {
	e, err := em.row(idx)
	if err != nil || !em.isIncluded(*e) {
		return false, false
	}

	if !editable {
		delete(em.included, e.Time)
		return false, true
	}

	return true, true
}

func (em *exampleModel) cellChanged(idx int, name, content string) bool {
	e, err := em.row(idx)
	if err != nil {
		return false
	}

	v, _ := e.Lookup(name)

	return v != content
}

func (em *exampleModel) editable(idx int) bool {
	return idx >= 0 && idx < len(em.valid) && em.valid[idx]
}

// nextCell returns the editable output cell after (row, name), moving
// across output variables first unless skipLine is set. It wraps around
// the table and returns the first row when nothing else is editable.
func (em *exampleModel) nextCell(row int, name string, backwards, skipLine bool) (int, string) {
	n := len(em.envs)
	if n == 0 || len(em.outVars) == 0 {
		return 0, name
	}

	step := 1
	if backwards {
		step = -1
	}

	varIdx := 0

	if skipLine {
		row += step
	} else {
		varIdx = slices.Index(em.outVars, name) + step

		switch {
		case varIdx < 0:
			varIdx = len(em.outVars) - 1
			row--
		case varIdx >= len(em.outVars):
			varIdx = 0
			row++
		}
	}

	wrap := func(r int) int {
		return ((r % n) + n) % n
	}

	row = wrap(row)
	start := row

	for !em.editable(row) {
		row = wrap(row + step)
		if row == start {
			return 0, em.outVars[varIdx]
		}
	}

	return row, em.outVars[varIdx]
}

// compareLineKeys orders trace keys by line number, with a line's return
// key ("R3") after its plain key.
func compareLineKeys(a, b string) int {
	na, ra := lineKeyNumber(a)
	nb, rb := lineKeyNumber(b)

	switch {
	case na != nb:
		return na - nb
	case ra == rb:
		return strings.Compare(a, b)
	case rb:
		return -1
	}

	return 1
}

func lineKeyNumber(key string) (int, bool) {
	rest, isReturn := strings.CutPrefix(key, "R")

	n, err := strconv.Atoi(rest)
	if err != nil {
		return -1, isReturn
	}

	return n, isReturn
}
