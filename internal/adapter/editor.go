package adapter

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Editor is the text surface projection boxes are attached to. Lines and
// columns are 1-based and ranges are end-exclusive.
//
//nolint:interfacebloat // mirrors the editor surface the controller drives
type Editor interface {
	LineCount() int
	Line(n int) string
	Lines() []string
	LineMaxColumn(n int) int
	// ApplyEdits replaces ranges and notifies content listeners.
	ApplyEdits(changes []m.Change) error
	// PushUndoStop closes the current undo group.
	PushUndoStop()
	Cursor() m.Position
	SetCursor(p m.Position)
	AddDecoration(d m.Decoration) string
	RemoveDecoration(id string)
	Decorations() []m.Decoration
	OnContentChange(fn func(m.EditEvent)) (cancel func())
	OnCursorChange(fn func(m.Position)) (cancel func())
}

// Buffer is an in-memory Editor. Columns count bytes.
type Buffer struct {
	mu          sync.Mutex
	lines       []string
	cursor      m.Position
	decorations map[string]m.Decoration
	nextDeco    int
	undo        [][]string

	subMu      sync.Mutex
	nextSub    int
	contentFns map[int]func(m.EditEvent)
	cursorFns  map[int]func(m.Position)
}

// NewBuffer creates a buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{
		lines:       SplitLines(text),
		cursor:      m.Position{Line: 1, Column: 1},
		decorations: map[string]m.Decoration{},
		contentFns:  map[int]func(m.EditEvent){},
		cursorFns:   map[int]func(m.Position){},
	}
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.lines)
}

// Line returns the text of line n, empty when out of range.
func (b *Buffer) Line(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < 1 || n > len(b.lines) {
		return ""
	}

	return b.lines[n-1]
}

// Lines returns a copy of every line.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.lines)
}

// Text joins the lines.
func (b *Buffer) Text() string {
	return strings.Join(b.Lines(), "\n")
}

// LineMaxColumn returns the column after the last character of line n.
func (b *Buffer) LineMaxColumn(n int) int {
	return len(b.Line(n)) + 1
}

// ApplyEdits replaces each range with its text. Ranges refer to the text
// before the edit and must not overlap.
func (b *Buffer) ApplyEdits(changes []m.Change) error {
	if len(changes) == 0 {
		return nil
	}

	b.mu.Lock()

	text := strings.Join(b.lines, "\n")
	type span struct {
		start, end int
		text       string
	}

	spans := make([]span, 0, len(changes))

	for _, c := range changes {
		start, err := b.offset(c.Range.Start)
		if err != nil {
			b.mu.Unlock()
			return err
		}

		end, err := b.offset(c.Range.End)
		if err != nil {
			b.mu.Unlock()
			return err
		}

		if end < start {
			b.mu.Unlock()
			return fmt.Errorf("range %v ends before it starts", c.Range)
		}

		spans = append(spans, span{start: start, end: end, text: c.Text})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start > spans[j].start })

	for i := 1; i < len(spans); i++ {
		if spans[i].end > spans[i-1].start {
			b.mu.Unlock()
			return fmt.Errorf("overlapping edits at offset %d", spans[i-1].start)
		}
	}

	for _, s := range spans {
		text = text[:s.start] + s.text + text[s.end:]
	}

	b.lines = SplitLines(text)
	if b.cursor.Line > len(b.lines) {
		b.cursor = m.Position{Line: len(b.lines), Column: 1}
	}

	b.mu.Unlock()

	b.emitContent(m.EditEvent{Changes: slices.Clone(changes)})

	return nil
}

// offset converts a position to a byte offset in the joined text. Columns
// past the end of a line clamp to the line end.
func (b *Buffer) offset(p m.Position) (int, error) {
	if p.Line < 1 || p.Line > len(b.lines) {
		return 0, fmt.Errorf("line %d out of range 1..%d", p.Line, len(b.lines))
	}

	off := 0
	for i := 0; i < p.Line-1; i++ {
		off += len(b.lines[i]) + 1
	}

	col := max(p.Column, 1)
	col = min(col, len(b.lines[p.Line-1])+1)

	return off + col - 1, nil
}

// SetText replaces the whole buffer as one edit.
func (b *Buffer) SetText(text string) error {
	b.mu.Lock()
	last := len(b.lines)
	end := m.Position{Line: last, Column: len(b.lines[last-1]) + 1}
	b.mu.Unlock()

	return b.ApplyEdits([]m.Change{{
		Range: m.Range{Start: m.Position{Line: 1, Column: 1}, End: end},
		Text:  text,
	}})
}

// PushUndoStop records the current text as an undo point.
func (b *Buffer) PushUndoStop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.undo = append(b.undo, slices.Clone(b.lines))
}

// Undo restores the last undo point. It reports false when there is none.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	if len(b.undo) == 0 {
		b.mu.Unlock()
		return false
	}

	prev := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	b.mu.Unlock()

	if err := b.SetText(strings.Join(prev, "\n")); err != nil {
		return false
	}

	return true
}

// Cursor returns the cursor position.
func (b *Buffer) Cursor() m.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cursor
}

// SetCursor moves the cursor, clamped to the buffer, and notifies cursor
// listeners.
func (b *Buffer) SetCursor(p m.Position) {
	b.mu.Lock()
	p.Line = min(max(p.Line, 1), len(b.lines))
	p.Column = min(max(p.Column, 1), len(b.lines[p.Line-1])+1)
	b.cursor = p
	b.mu.Unlock()

	b.subMu.Lock()
	fns := make([]func(m.Position), 0, len(b.cursorFns))
	for _, k := range sortedKeys(b.cursorFns) {
		fns = append(fns, b.cursorFns[k])
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// AddDecoration stores a decoration and returns its id.
func (b *Buffer) AddDecoration(d m.Decoration) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextDeco++
	id := strconv.Itoa(b.nextDeco)
	b.decorations[id] = d

	return id
}

// RemoveDecoration drops a decoration. Unknown ids are ignored.
func (b *Buffer) RemoveDecoration(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.decorations, id)
}

// Decorations returns the decorations in creation order.
func (b *Buffer) Decorations() []m.Decoration {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.decorations))
	for id := range b.decorations {
		n, _ := strconv.Atoi(id)
		ids = append(ids, n)
	}

	sort.Ints(ids)

	out := make([]m.Decoration, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.decorations[strconv.Itoa(id)])
	}

	return out
}

// OnContentChange subscribes to edits.
func (b *Buffer) OnContentChange(fn func(m.EditEvent)) func() {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	b.nextSub++
	id := b.nextSub
	b.contentFns[id] = fn

	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()

		delete(b.contentFns, id)
	}
}

// OnCursorChange subscribes to cursor moves.
func (b *Buffer) OnCursorChange(fn func(m.Position)) func() {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	b.nextSub++
	id := b.nextSub
	b.cursorFns[id] = fn

	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()

		delete(b.cursorFns, id)
	}
}

func (b *Buffer) emitContent(ev m.EditEvent) {
	b.subMu.Lock()
	fns := make([]func(m.EditEvent), 0, len(b.contentFns))
	for _, k := range sortedKeys(b.contentFns) {
		fns = append(fns, b.contentFns[k])
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func sortedKeys[V any](mp map[int]V) []int {
	keys := make([]int, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	return keys
}
