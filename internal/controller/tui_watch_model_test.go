package controller

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, wm watchModel, msg tea.Msg) (watchModel, tea.Cmd) {
	t.Helper()

	updated, cmd := wm.Update(msg)
	next, ok := updated.(watchModel)
	require.True(t, ok)

	return next, cmd
}

// pressAndRun presses a key and feeds the message of its command back.
func pressAndRun(t *testing.T, wm watchModel, msg tea.Msg) watchModel {
	t.Helper()

	wm, cmd := press(t, wm, msg)
	require.NotNil(t, cmd)

	wm, _ = press(t, wm, cmd())

	return wm
}

func newUpdatedWatchModel(t *testing.T) watchModel {
	t.Helper()

	w := newTestWatch(t)
	_, err := w.Controller.UpdateBoxes(context.Background(), nil)
	require.NoError(t, err)

	return newWatchModel(w, m.DefaultSettings())
}

func TestWatchModel_View(t *testing.T) {
	wm := newUpdatedWatchModel(t)
	wm, _ = press(t, wm, tea.WindowSizeMsg{Width: 100, Height: 40})

	require.Len(t, wm.view.Tables, 3)

	view := wm.View()
	assert.Contains(t, view, "loop.py")
	assert.Contains(t, view, "y = i")
	assert.Contains(t, view, "250ms")

	rows, cursorRow := wm.bodyRows()
	assert.Equal(t, 0, cursorRow)
	assert.Greater(t, len(rows), len(wm.view.Lines))
}

func TestWatchModel_UpdateEvents(t *testing.T) {
	wm := newUpdatedWatchModel(t)

	wm, _ = press(t, wm, updateMsg{source: "loop.py", event: m.BoxUpdateEvent{Phase: m.UpdateStart}})
	assert.True(t, wm.running)

	wm, _ = press(t, wm, updateMsg{source: "loop.py", event: m.BoxUpdateEvent{Phase: m.UpdateFinish}})
	assert.False(t, wm.running)
}

func TestWatchModel_Cursor(t *testing.T) {
	wm := newUpdatedWatchModel(t)

	wm, _ = press(t, wm, tea.KeyMsg{Type: tea.KeyDown})
	wm, _ = press(t, wm, runes("j"))
	assert.Equal(t, 3, wm.cursor)
	assert.Equal(t, 3, wm.watch.Buffer.Cursor().Line)

	wm, _ = press(t, wm, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, wm.cursor)

	for range 10 {
		wm, _ = press(t, wm, runes("k"))
	}

	assert.Equal(t, 1, wm.cursor)
}

func TestWatchModel_ViewModes(t *testing.T) {
	wm := newUpdatedWatchModel(t)

	wm, _ = press(t, wm, runes("v"))

	assert.Equal(t, "view mode: Cursor and Return", wm.status)
	assert.Equal(t, m.ViewCursorAndReturn, wm.view.Mode)
	require.Len(t, wm.view.Tables, 1)
	assert.Equal(t, 1, wm.view.Tables[0].Line)

	wm, _ = press(t, wm, runes("c"))
	assert.Equal(t, m.ViewFull, wm.view.Mode)

	wm, _ = press(t, wm, runes("+"))
	assert.Equal(t, "update delay: 350ms", wm.status)
}

func TestWatchModel_VarCommands(t *testing.T) {
	wm := newUpdatedWatchModel(t)
	wm = wm.moveCursor(2)

	wm, cmd := press(t, wm, runes(":"))
	assert.Equal(t, inputVarCommand, wm.inputKind)
	assert.NotNil(t, cmd)

	wm, _ = press(t, wm, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, inputNone, wm.inputKind)

	next, _ := wm.submitInput(inputVarCommand, "add x")
	wm = next.(watchModel)
	assert.Equal(t, "add x", wm.status)
	assert.Equal(t, []string{"#", "y", "x"}, wm.watch.Controller.GetBox(3).DisplayedVars())

	next, _ = wm.submitInput(inputVarCommand, "add yy")
	wm = next.(watchModel)
	assert.Contains(t, wm.status, "did you mean")

	next, _ = wm.submitInput(inputVarCommand, "nope")
	wm = next.(watchModel)
	assert.Contains(t, wm.status, "error: ")

	wm, _ = press(t, wm, runes("h"))
	assert.False(t, wm.watch.Controller.GetBox(3).HasContent())

	wm, _ = press(t, wm, runes("r"))
	assert.True(t, wm.watch.Controller.GetBox(3).HasContent())
}

func TestWatchModel_CopyAndSave(t *testing.T) {
	copied := stubClipboard(t)

	wm := newUpdatedWatchModel(t)

	wm, _ = press(t, wm, runes("w"))
	assert.Equal(t, "saving is disabled", wm.status)

	saved := false
	wm.watch.Save = func() error {
		saved = true
		return nil
	}

	wm, _ = press(t, wm, runes("w"))
	assert.True(t, saved)
	assert.Equal(t, "saved loop.py", wm.status)

	wm, _ = press(t, wm, tea.KeyMsg{Type: tea.KeyDown})
	wm, _ = press(t, wm, runes("y"))
	assert.Equal(t, "no box on this line", wm.status)

	wm, _ = press(t, wm, tea.KeyMsg{Type: tea.KeyDown})
	wm, _ = press(t, wm, runes("y"))
	assert.Equal(t, "box at line 3 copied", wm.status)
	assert.Contains(t, *copied, "y")
}

func TestWatchModel_LoopFocus(t *testing.T) {
	wm := newUpdatedWatchModel(t)
	wm = wm.moveCursor(2)

	wm = pressAndRun(t, wm, runes("f"))

	focus := wm.watch.Controller.Focus()
	require.NotNil(t, focus)
	assert.Equal(t, "0", focus.Iter())
	assert.Contains(t, wm.View(), "focus line 3 #0")

	wm = pressAndRun(t, wm, runes("]"))
	assert.Equal(t, "1", wm.watch.Controller.Focus().Iter())

	wm = pressAndRun(t, wm, runes("["))
	assert.Equal(t, "0", wm.watch.Controller.Focus().Iter())

	wm = pressAndRun(t, wm, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, wm.watch.Controller.Focus())
	assert.Equal(t, "focus stopped", wm.status)
}

func TestWatchModel_Actions(t *testing.T) {
	wm := newUpdatedWatchModel(t)

	wm, _ = press(t, wm, actionMsg{status: "done"})
	assert.Equal(t, "done", wm.status)

	wm, _ = press(t, wm, actionMsg{err: domain.ErrCancelled})
	assert.Equal(t, "done", wm.status)

	wm, _ = press(t, wm, actionMsg{err: errors.New("boom")})
	assert.Equal(t, "error: boom", wm.status)

	wm, _ = press(t, wm, synthStartedMsg{err: domain.ErrSynthDisconnected})
	assert.Contains(t, wm.status, "synthesis: ")
	assert.Nil(t, wm.session)

	wm, _ = press(t, wm, synthReportMsg{report: SynthesisReport{Line: 2, Text: "y = 1"}})
	assert.Equal(t, "line 2: y = 1", wm.status)

	_, cmd := press(t, wm, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
