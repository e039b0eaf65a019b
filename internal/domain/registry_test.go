package domain

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

func insertAt(line, col int, text string) *m.EditEvent {
	at := m.Position{Line: line, Column: col}
	return &m.EditEvent{Changes: []m.Change{{Range: m.Range{Start: at, End: at}, Text: text}}}
}

func newTestRegistry(lines []string) *Registry {
	r := NewRegistry(NewDeltaVarSet())
	r.Pad(len(lines))
	r.Snapshot(lines)

	return r
}

func TestRegistry_Reconcile(t *testing.T) {
	before := []string{"a = 1", "b = 2", "c = 3", "d = 4", "e = 5"}

	t.Run("two lines inserted above line 5 of 10", func(t *testing.T) {
		ten := make([]string, 10)
		for i := range ten {
			ten[i] = fmt.Sprintf("v%d = %d", i+1, i+1)
		}

		r := newTestRegistry(ten)
		old := r.Boxes()

		after := slices.Concat(ten[:4], []string{"", ""}, ten[4:])
		r.Reconcile(insertAt(5, 1, "\n\n"), after)

		boxes := r.Boxes()
		require.Len(t, boxes, 12)

		for i := range 4 {
			assert.Same(t, old[i], boxes[i])
		}

		assert.NotSame(t, old[4], boxes[4])
		assert.NotSame(t, old[4], boxes[5])
		assert.False(t, boxes[4].HasContent())

		for i := 4; i < 10; i++ {
			assert.Same(t, old[i], boxes[i+2])
			assert.Equal(t, i+3, old[i].LineNumber())
		}
	})

	t.Run("line inserted at the end of a line", func(t *testing.T) {
		r := newTestRegistry(before)
		old := r.Boxes()

		after := []string{"a = 1", "", "b = 2", "c = 3", "d = 4", "e = 5"}
		r.Reconcile(insertAt(1, 6, "\n"), after)

		boxes := r.Boxes()
		require.Len(t, boxes, 6)
		assert.Same(t, old[0], boxes[0])
		assert.Same(t, old[1], boxes[2])
		assert.Equal(t, 3, old[1].LineNumber())
	})

	// The boundary test only compares the column with the last non-blank
	// one, so splitting a line keeps its box on the second half.
	t.Run("splitting a line moves its box down", func(t *testing.T) {
		r := newTestRegistry(before)
		old := r.Boxes()

		after := []string{"a ", "= 1", "b = 2", "c = 3", "d = 4", "e = 5"}
		r.Reconcile(insertAt(1, 3, "\n"), after)

		boxes := r.Boxes()
		require.Len(t, boxes, 6)
		assert.NotSame(t, old[0], boxes[0])
		assert.Same(t, old[0], boxes[1])
		assert.Same(t, old[4], boxes[5])
	})

	t.Run("removed lines release their boxes", func(t *testing.T) {
		r := newTestRegistry(before)
		old := r.Boxes()

		ev := &m.EditEvent{Changes: []m.Change{{
			Range: m.Range{Start: m.Position{Line: 2, Column: 6}, End: m.Position{Line: 4, Column: 6}},
		}}}
		after := []string{"a = 1", "b = 2", "e = 5"}
		r.Reconcile(ev, after)

		boxes := r.Boxes()
		require.Len(t, boxes, 3)
		assert.Same(t, old[0], boxes[0])
		assert.Same(t, old[3], boxes[1])
		assert.Same(t, old[4], boxes[2])
		assert.True(t, old[1].Released())
		assert.True(t, old[2].Released())
		assert.False(t, old[3].Released())
	})

	t.Run("edits inside a line keep every box", func(t *testing.T) {
		r := newTestRegistry(before)
		old := r.Boxes()

		after := []string{"a = 1", "b = 22", "c = 3", "d = 4", "e = 5"}
		r.Reconcile(insertAt(2, 6, "2"), after)

		assert.Equal(t, old, r.Boxes())
	})

	t.Run("new boxes start hidden when asked", func(t *testing.T) {
		r := newTestRegistry(before)
		r.SetHideNewBoxes(true)

		after := []string{"", "a = 1", "b = 2", "c = 3", "d = 4", "e = 5"}
		r.Reconcile(insertAt(1, 1, "\n"), after)

		assert.True(t, r.HideNewBoxes())
		assert.True(t, r.Boxes()[0].hideAll)
		assert.False(t, r.Boxes()[1].hideAll)
	})

	t.Run("nil event refreshes the snapshot", func(t *testing.T) {
		r := newTestRegistry(before)
		old := r.Boxes()

		r.Reconcile(nil, before)

		assert.Equal(t, old, r.Boxes())
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(NewDeltaVarSet())

	b := r.Get(3)

	assert.Equal(t, 3, b.LineNumber())
	assert.Equal(t, 3, r.Len())

	r.Reset()
	assert.Zero(t, r.Len())
	assert.True(t, b.Released())
}
