package domain

import (
	"fmt"
	"slices"

	"github.com/mouse-blink/pbox/internal/domain/trace"
	m "github.com/mouse-blink/pbox/internal/model"
)

// maxChangedLines is how many lines may change while the trace is out of
// date before boxes are hidden.
const maxChangedLines = 4

// Projection is everything a box needs to compute its table.
type Projection struct {
	Settings m.Settings
	// Line returns the current text of a 1-based line.
	Line  func(n int) string
	Index *trace.Index
	Focus *LoopFocus
	// ChangedLines counts lines edited since the trace was produced.
	ChangedLines int
	// OutVars and PrevEnvs are set while synthesizing.
	OutVars  []string
	PrevEnvs map[int]m.Env
}

func (p Projection) lineText(n int) string {
	if p.Line == nil {
		return ""
	}

	return p.Line(n)
}

// computeEnvs fills box.envs with the flattened environments of its line
// and reports whether the box ended up without a table to build.
func computeEnvs(box *Box, p Projection) (bool, error) {
	if p.ChangedLines > maxChangedLines {
		box.setContentFalse()
		return true, nil
	}

	text := p.lineText(box.line)
	if !p.Settings.ShowBoxAtEmptyLines && (isEmptyLine(text) || isCommentLine(text)) {
		box.setContentFalse()
		return true, nil
	}

	var (
		envs []m.Env
		ran  bool
	)
	if p.Index != nil {
		envs, ran = p.Index.EnvsAt(box.line)
	}

	if !ran {
		box.setNotExecuted(p.Settings.ShowBoxWhenNotExecuted)
		return true, nil
	}

	if isConditionalLine(text) || isBreakLine(text) || (!p.Settings.ShowBoxAtLoopStatements && isLoopLine(text)) {
		if !slices.ContainsFunc(envs, func(e m.Env) bool { return e.Has(m.KeyException) }) {
			box.setContentFalse()
			return true, nil
		}
	}

	if !slices.ContainsFunc(envs, func(e m.Env) bool { return !e.IsMarker() }) {
		box.setNotExecuted(p.Settings.ShowBoxWhenNotExecuted)
		return true, nil
	}

	flat, err := trace.Flatten(envs)
	if err != nil {
		box.setContentFalse()
		return true, fmt.Errorf("line %d: %w", box.line, err)
	}

	box.envs = flat
	box.hasContent = true

	return false, nil
}

// collectAllVars orders the iteration counter first, then the variables
// of the enclosing loop headers, then everything else as first seen.
func collectAllVars(envs []m.Env, p Projection) *VarSet {
	all := NewVarSet()
	addedIter, addedLoopVars := false, false

	for _, env := range envs {
		if !addedIter && env.Iter != "" {
			addedIter = true
			all.Add(m.KeyIter)
		}

		if !addedLoopVars && env.LoopID != "" {
			addedLoopVars = true

			for _, id := range env.LoopPath() {
				if p.Index == nil {
					break
				}

				for _, v := range p.Index.LoopVars(id) {
					all.Add(v)
				}
			}
		}

		for _, b := range env.Bindings {
			all.Add(b.Name)
		}
	}

	return all
}

// modifiedVars are the variables written on the line plus the return
// value and exception, restricted to what actually showed up at runtime.
func modifiedVars(box *Box, p Projection) *VarSet {
	var writes []string
	if p.Index != nil {
		writes = p.Index.WritesAt(box.line)
	}

	res := NewVarSet()
	if box.allVars.Has(m.KeyIter) && len(writes) > 0 {
		res.Add(m.KeyIter)
	}

	for _, v := range writes {
		res.Add(v)
	}

	for _, v := range []string{m.KeyReturn, m.KeyException} {
		if box.allVars.Has(v) {
			res.Add(v)
		}
	}

	for _, v := range res.Slice() {
		if !box.allVars.Has(v) {
			res.Delete(v)
		}
	}

	return res
}

// Project recomputes the content of box.
func Project(box *Box, p Projection) error {
	done, err := computeEnvs(box, p)
	if done {
		return err
	}

	envs := box.envs
	box.allVars = collectAllVars(envs, p)

	var starting *VarSet
	if p.Settings.DisplayOnlyModifiedVars {
		starting = modifiedVars(box, p)
	} else {
		starting = box.allVars
	}

	if p.Focus != nil {
		envs = slices.DeleteFunc(slices.Clone(envs), func(e m.Env) bool {
			return !p.Focus.Matches(e.LoopID, e.Iter)
		})
	}

	if len(envs) == 0 {
		box.setContentFalse()
		return nil
	}

	vars := box.delta.ApplyTo(starting, box.allVars)

	if box.hideAll {
		box.hideAll = false

		for _, v := range vars.Slice() {
			box.delta.Delete(v)
		}

		vars = NewVarSet()
	}

	if p.PrevEnvs != nil {
		vars = dropSynthesizedVars(vars, envs, p)
	}

	box.displayed = vars

	if vars.Len() == 0 {
		box.setContentFalse()
		return nil
	}

	box.table = buildTable(box.line, vars, envs, p)

	return nil
}

// dropSynthesizedVars removes output variables that were not bound before
// the line ran. The last environment with a predecessor decides.
func dropSynthesizedVars(vars *VarSet, envs []m.Env, p Projection) *VarSet {
	out := NewVarSet()

	for _, v := range vars.Slice() {
		keep := true

		if slices.Contains(p.OutVars, v) {
			for _, env := range envs {
				if !env.HasTime {
					continue
				}

				if prev, ok := p.PrevEnvs[env.Time]; ok {
					keep = prev.Has(v)
				}
			}
		}

		if keep {
			out.Add(v)
		}
	}

	return out
}

func buildTable(line int, vars *VarSet, envs []m.Env, p Projection) *m.Table {
	table := &m.Table{Line: line}

	for _, v := range vars.Slice() {
		role := m.ColumnPlain
		if slices.Contains(p.OutVars, v) {
			role = m.ColumnIn
		}

		table.Columns = append(table.Columns, m.Column{Var: v, Role: role})
	}

	for _, v := range p.OutVars {
		table.Columns = append(table.Columns, m.Column{Var: v, Role: m.ColumnOut})
	}

	for _, env := range envs {
		row := m.Row{
			Iter:    env.Iter,
			LoopID:  env.LoopID,
			Time:    env.Time,
			HasTime: env.HasTime,
			Filler:  env.Kind == m.EnvFiller,
		}

		for _, col := range table.Columns {
			src := env

			if col.Role == m.ColumnIn && env.HasTime {
				if prev, ok := p.PrevEnvs[env.Time]; ok {
					src = prev
				}
			}

			value, _ := src.Lookup(col.Var)
			row.Cells = append(row.Cells, m.Cell{Var: col.Var, Value: value})
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}
