package model

import "strings"

// Position is a 1-based line and column.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p sorts before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}

	return p.Column < o.Column
}

// Range is an end-exclusive span of text.
type Range struct {
	Start Position
	End   Position
}

// ContainsLine reports whether the line lies within the range.
func (r Range) ContainsLine(line int) bool {
	return r.Start.Line <= line && line <= r.End.Line
}

// Change replaces Range with Text.
type Change struct {
	Range Range
	Text  string
}

// AddedLines counts the line breaks in the inserted text.
func (c Change) AddedLines() int {
	return strings.Count(c.Text, "\n")
}

// RemovedLines counts the line breaks in the replaced range.
func (c Change) RemovedLines() int {
	return c.Range.End.Line - c.Range.Start.Line
}

// EditEvent groups the changes of one edit operation.
type EditEvent struct {
	Changes []Change
}

// Decoration annotates a range in the editor.
type Decoration struct {
	Range     Range
	ClassName string
	Message   string
	WholeLine bool
}

const (
	// DecorationError marks an error location.
	DecorationError = "squiggly-error"
	// DecorationInfo marks a loop focus seed.
	DecorationInfo = "squiggly-info"
	// DecorationFade dims code outside the focused loop.
	DecorationFade = "rtv-code-fade"
	// DecorationHighlight marks an included synthesis example.
	DecorationHighlight = "rtv-highlight"
)
