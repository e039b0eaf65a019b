package domain

import (
	"slices"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Registry keeps one box per source line and moves boxes along with the
// lines they belong to as text is edited.
type Registry struct {
	boxes     []*Box
	prevLines []string
	global    *DeltaVarSet
	// hideNew hides every variable of boxes created for inserted lines.
	hideNew bool
}

// NewRegistry returns an empty registry whose new boxes start from the
// given global delta.
func NewRegistry(global *DeltaVarSet) *Registry {
	return &Registry{global: global}
}

// Boxes returns the boxes in line order.
func (r *Registry) Boxes() []*Box {
	return slices.Clone(r.boxes)
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.boxes)
}

// SetHideNewBoxes controls whether boxes for inserted lines start hidden.
func (r *Registry) SetHideNewBoxes(hide bool) {
	r.hideNew = hide
}

// HideNewBoxes reports the current policy for inserted lines.
func (r *Registry) HideNewBoxes() bool {
	return r.hideNew
}

// Get returns the box of a 1-based line, creating slots up to it.
func (r *Registry) Get(line int) *Box {
	for j := len(r.boxes); j < line; j++ {
		r.boxes = append(r.boxes, newBox(j+1, r.global))
	}

	return r.boxes[line-1]
}

// Pad makes sure there is a slot for every line.
func (r *Registry) Pad(lineCount int) {
	if lineCount > 0 {
		r.Get(lineCount)
	}
}

// Reset drops every box and the line snapshot.
func (r *Registry) Reset() {
	for _, b := range r.boxes {
		b.release()
	}

	r.boxes = nil
	r.prevLines = nil
}

// Snapshot records the text the next reconciliation compares against.
func (r *Registry) Snapshot(lines []string) {
	r.prevLines = slices.Clone(lines)
}

// Reconcile rebuilds the slot array after an edit so that surviving lines
// keep their boxes, inserted lines get new ones and removed lines release
// theirs. lines is the text after the edit. A nil event only refreshes the
// snapshot.
func (r *Registry) Reconcile(ev *m.EditEvent, lines []string) {
	if ev == nil {
		r.Snapshot(lines)
		return
	}

	changes := slices.Clone(ev.Changes)
	slices.SortStableFunc(changes, compareChanges)

	orig := r.boxes
	lineCount := len(lines)
	boxes := make([]*Box, 0, lineCount)
	changeIdx, origIdx := 0, 0

	carry := func() {
		var b *Box
		if origIdx < len(orig) {
			b = orig[origIdx]
		} else {
			b = newBox(len(boxes)+1, r.global)
		}

		origIdx++
		b.line = len(boxes) + 1
		boxes = append(boxes, b)
	}

	for len(boxes) < lineCount {
		if changeIdx >= len(changes) {
			carry()
			continue
		}

		line := len(boxes) + 1
		change := changes[changeIdx]
		delta := change.AddedLines() - change.RemovedLines()
		start := change.Range.Start

		consumed := (delta <= 0 && start.Line == line) ||
			(delta > 0 && ((start.Line == line && start.Column < r.prevLastCol(line)) ||
				(start.Line == line-1 && start.Column >= r.prevLastCol(line-1))))

		if !consumed {
			carry()
			continue
		}

		changeIdx++

		switch {
		case delta > 0:
			for j := 0; j < delta && len(boxes) < lineCount; j++ {
				b := newBox(len(boxes)+1, r.global)
				if r.hideNew {
					b.hideAll = true
				}

				boxes = append(boxes, b)
			}
		case delta < 0:
			for j := origIdx; j < origIdx-delta && j < len(orig); j++ {
				orig[j].release()
			}

			origIdx -= delta
		}
	}

	r.boxes = boxes
	r.Snapshot(lines)
}

func (r *Registry) prevLastCol(line int) int {
	if line < 1 || line > len(r.prevLines) {
		return 0
	}

	return lastNonWhitespaceCol(r.prevLines[line-1])
}

func compareChanges(a, b m.Change) int {
	switch {
	case a.Range.Start.Before(b.Range.Start):
		return -1
	case b.Range.Start.Before(a.Range.Start):
		return 1
	case a.Range.End.Before(b.Range.End):
		return -1
	case b.Range.End.Before(a.Range.End):
		return 1
	}

	return 0
}
