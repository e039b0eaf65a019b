package domain

import (
	"fmt"
	"regexp"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Box is the projection slot of one source line.
type Box struct {
	line       int
	allVars    *VarSet
	displayed  *VarSet
	delta      *DeltaVarSet
	hasContent bool
	envs       []m.Env
	table      *m.Table
	released   bool
	// hideAll hides every variable on the next update.
	hideAll bool
}

func newBox(line int, global *DeltaVarSet) *Box {
	return &Box{
		line:      line,
		allVars:   NewVarSet(),
		displayed: NewVarSet(),
		delta:     global.Clone(),
	}
}

// LineNumber returns the 1-based line the box belongs to.
func (b *Box) LineNumber() int { return b.line }

// HasContent reports whether the box takes part in rendering.
func (b *Box) HasContent() bool { return b.hasContent }

// Released reports whether the box was dropped with its line.
func (b *Box) Released() bool { return b.released }

// Table returns the last rendered table, nil when there is none.
func (b *Box) Table() *m.Table {
	if !b.hasContent {
		return nil
	}

	return b.table
}

// Envs returns the flattened environments of the last update.
func (b *Box) Envs() []m.Env { return b.envs }

// AllVars returns every displayable variable.
func (b *Box) AllVars() []string { return b.allVars.Slice() }

// DisplayedVars returns the variables currently shown.
func (b *Box) DisplayedVars() []string { return b.displayed.Slice() }

// NotDisplayedVars returns the variables that could be shown but are not.
func (b *Box) NotDisplayedVars() []string {
	var out []string

	for _, v := range b.allVars.Slice() {
		if !b.displayed.Has(v) {
			out = append(out, v)
		}
	}

	return out
}

// LoopID returns the loop id path of the first environment.
func (b *Box) LoopID() string {
	if len(b.envs) == 0 {
		return ""
	}

	return b.envs[0].LoopID
}

// FirstLoopIter returns the iteration path of the first environment.
func (b *Box) FirstLoopIter() string {
	if len(b.envs) == 0 {
		return ""
	}

	return b.envs[0].Iter
}

// NextLoopIter returns the iteration after iter within the box, wrapping
// around to the first one. Negative deltas walk backwards.
func (b *Box) NextLoopIter(loopID, iter string, delta int) (string, error) {
	if delta == 0 {
		return iter, nil
	}

	envs := b.envs
	if delta < 0 {
		envs = make([]m.Env, len(b.envs))
		for i, e := range b.envs {
			envs[len(envs)-1-i] = e
		}
	}

	first := ""

	for i, env := range envs {
		if env.LoopID != loopID {
			return "", fmt.Errorf("line %d, loop %q: %w", b.line, env.LoopID, ErrForeignLoop)
		}

		if first == "" {
			first = env.Iter
		}

		if env.Iter != iter {
			continue
		}

		if i+1 >= len(envs) {
			return first, nil
		}

		next := envs[i+1]
		if next.LoopID != loopID {
			return "", fmt.Errorf("line %d, loop %q: %w", b.line, next.LoopID, ErrForeignLoop)
		}

		return next.Iter, nil
	}

	return first, nil
}

// VarRemove hides every displayed variable matching pattern and records
// the hidden names in removed when given.
func (b *Box) VarRemove(pattern string, removed *VarSet) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	for _, v := range b.allVars.Slice() {
		if matchesEntirely(re, v) && b.displayed.Has(v) {
			b.delta.Delete(v)

			if removed != nil {
				removed.Add(v)
			}
		}
	}

	return nil
}

// VarRemoveAll hides every variable.
func (b *Box) VarRemoveAll(removed *VarSet) {
	_ = b.VarRemove("*", removed)
}

// VarAdd shows every hidden variable matching pattern and records the
// shown names in added when given.
func (b *Box) VarAdd(pattern string, added *VarSet) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	for _, v := range b.allVars.Slice() {
		if matchesEntirely(re, v) && !b.displayed.Has(v) {
			b.delta.Add(v)

			if added != nil {
				added.Add(v)
			}
		}
	}

	return nil
}

// VarAddAll shows every variable.
func (b *Box) VarAddAll(added *VarSet) {
	_ = b.VarAdd("*", added)
}

// VarKeepOnly hides everything, then shows the variables matching pattern.
func (b *Box) VarKeepOnly(pattern string, added, removed *VarSet) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	b.VarRemoveAll(removed)
	b.displayed.Clear()

	return b.VarAdd(re.String(), added)
}

// VarRestoreToDefault drops the per-box delta.
func (b *Box) VarRestoreToDefault() {
	b.hideAll = false
	b.delta.Clear()
}

// VarMakeVisible restores the defaults of a box that shows nothing.
func (b *Box) VarMakeVisible() {
	if b.displayed.Len() == 0 {
		b.VarRestoreToDefault()
	}
}

func (b *Box) setContentFalse() {
	b.envs = nil
	b.hasContent = false
	b.table = nil
}

func (b *Box) setNotExecuted(show bool) {
	if !show {
		b.setContentFalse()
		return
	}

	b.envs = nil
	b.hasContent = true
	b.table = &m.Table{Line: b.line, Message: "Line not executed"}
}

func (b *Box) release() {
	b.setContentFalse()
	b.released = true
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "*" {
		pattern = ".*"
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}

	return re, nil
}

// matchesEntirely requires the leftmost match to cover the whole name.
func matchesEntirely(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
