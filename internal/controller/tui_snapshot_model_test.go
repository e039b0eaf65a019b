package controller

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

func TestSnapshotItem_FilterValue(t *testing.T) {
	assert.Equal(t, "src/a.py", snapshotItem{path: "src/a.py", boxes: 2}.FilterValue())
}

func TestAnimateScrollAndTruncate(t *testing.T) {
	assert.Empty(t, truncateToWidth("hello", 0))
	assert.Equal(t, "…", truncateToWidth("hello", 1))
	assert.Equal(t, "hello", truncateToWidth("hello", 10))
	assert.Equal(t, "he…", truncateToWidth("hello", 3))

	assert.Equal(t, "ab…", animateScroll("abcdef", 3, 0))
	assert.Equal(t, "abc", animateScroll("abc", 3, 100))

	got := animateScroll("abcdef", 3, 10)
	assert.NotEqual(t, "ab…", got)
	assert.Len(t, []rune(got), 3)
}

func TestSnapshotModel_Lifecycle(t *testing.T) {
	sm := newSnapshotModel(m.DefaultSettings())

	cmd := sm.Init()
	require.NotNil(t, cmd)
	assert.IsType(t, tickMsg{}, cmd())

	assert.Contains(t, sm.View(), "Projecting sources")

	updated, _ := sm.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	sm = updated.(snapshotModel)

	updated, _ = sm.Update(snapshotsMsg{snapshots: []m.Snapshot{loopSnapshot("a.py"), loopSnapshot("b.py")}})
	sm = updated.(snapshotModel)

	view := sm.View()
	assert.Contains(t, view, "Projection Boxes")
	assert.Contains(t, view, "a.py")
	assert.Contains(t, view, "line 3: y = i")

	updated, cmd = sm.Update(tickMsg(time.Now()))
	sm = updated.(snapshotModel)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, sm.animOffset)

	updated, _ = sm.Update(tea.KeyMsg{Type: tea.KeyDown})
	sm = updated.(snapshotModel)

	snap, ok := sm.selected()
	require.True(t, ok)
	assert.Equal(t, m.Path("b.py"), snap.Source)
	assert.Equal(t, 0, sm.animOffset)

	_, cmd = sm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSnapshotModel_Copy(t *testing.T) {
	copied := stubClipboard(t)

	sm := newSnapshotModel(m.DefaultSettings())
	assert.Equal(t, "nothing to copy", sm.copySelected())

	updated, _ := sm.Update(snapshotsMsg{snapshots: []m.Snapshot{loopSnapshot("a.py")}})
	sm = updated.(snapshotModel)

	updated, _ = sm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	sm = updated.(snapshotModel)

	assert.Equal(t, "boxes copied", sm.status)
	assert.Contains(t, *copied, "line 3: y = i")
}

func TestSnapshotModel_Error(t *testing.T) {
	sm := newSnapshotModel(m.DefaultSettings())

	updated, _ := sm.Update(snapshotsMsg{err: errors.New("no sources")})

	assert.Contains(t, updated.View(), "no sources")
}
