package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

func TestProjectionController_UpdateBoxes(t *testing.T) {
	t.Run("projects every executed line", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()

		exec := f.update(t)
		require.NotNil(t, exec)
		assert.Equal(t, 0, exec.ExitCode)

		box := f.ctrl.GetBox(3)
		assert.Equal(t, "2", box.LoopID())
		assert.Equal(t, []string{"#", "i", "x", "y"}, box.AllVars())
		assert.Equal(t, []string{"#", "y"}, box.DisplayedVars())

		table := box.Table()
		require.NotNil(t, table)
		assert.Equal(t, []string{"0", "1", "2"}, columnValues(table, "y"))

		// the loop header is hidden by default
		assert.False(t, f.ctrl.GetBox(2).HasContent())

		var lines []int
		for _, tb := range f.ctrl.Tables() {
			lines = append(lines, tb.Line)
		}

		assert.Equal(t, []int{1, 3, 4}, lines)
		assert.Equal(t, []string{"z"}, columnNames(f.ctrl.GetBox(4).Table()))
	})

	t.Run("emits start and finish", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()

		f.update(t)

		assert.Equal(t, []m.UpdatePhase{m.UpdateStart, m.UpdateFinish}, f.phases())
	})

	t.Run("sends the program with a trailing empty line", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.ctrl.dir = "/work"
		f.interp.On("Run", mock.Anything, m.RunRequest{Program: loopProgram + "\n", Dir: "/work"}).
			Return(okRun(loopTrace), nil).Once()

		f.update(t)
	})

	t.Run("disabled controller does not run", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.ctrl.Disable()

		_, err := f.ctrl.UpdateBoxes(context.Background(), nil)
		require.ErrorIs(t, err, ErrDisabled)
		assert.False(t, f.ctrl.IsEnabled())

		f.ctrl.Enable()
		f.runs(okRun(loopTrace)).Once()
		f.update(t)
		assert.True(t, f.ctrl.GetBox(3).HasContent())
	})

	t.Run("interpreter error cancels the update", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.interp.On("Run", mock.Anything, mock.Anything).Return(m.RunResult{}, assert.AnError).Once()

		_, err := f.ctrl.UpdateBoxes(context.Background(), nil)
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []m.UpdatePhase{m.UpdateStart, m.UpdateCancel}, f.phases())
	})

	t.Run("malformed trace keeps the previous boxes", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.runs(okRun("[0, {")).Once()

		_, err := f.ctrl.UpdateBoxes(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, f.ctrl.GetBox(3).HasContent())
	})
}

func TestProjectionController_ErrorAnnotation(t *testing.T) {
	stderr := "Traceback (most recent call last):\n" +
		"  File \"<string>\", line 4, in <module>\n" +
		"NameError: name 'w' is not defined\n"

	f := newFixture(t, loopProgram)
	f.runs(m.RunResult{ExitCode: 1, Stderr: stderr}).Once()

	exec := f.update(t)
	assert.Equal(t, 1, exec.ExitCode)

	require.Eventually(t, func() bool {
		_, ok := f.ctrl.ErrorAnnotation()
		return ok
	}, time.Second, 5*time.Millisecond)

	deco, _ := f.ctrl.ErrorAnnotation()
	want := m.Decoration{
		Range: m.Range{
			Start: m.Position{Line: 4, Column: 1},
			End:   m.Position{Line: 4, Column: 6},
		},
		ClassName: m.DecorationError,
		Message:   "NameError: name 'w' is not defined",
	}
	assert.Empty(t, cmp.Diff(want, deco))
	assert.Len(t, f.buf.Decorations(), 1)

	f.runs(okRun(loopTrace)).Once()
	f.update(t)

	_, ok := f.ctrl.ErrorAnnotation()
	assert.False(t, ok)
	assert.Empty(t, f.buf.Decorations())
}

func TestProjectionController_EditorEvents(t *testing.T) {
	t.Run("an edit reruns the program in the background", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Twice()
		f.update(t)

		last := f.ctrl.GetBox(4)

		at := m.Position{Line: 4, Column: 6}
		require.NoError(t, f.buf.ApplyEdits([]m.Change{{Range: m.Range{Start: at, End: at}, Text: "\n"}}))

		// boxes follow their lines before the run
		assert.Same(t, last, f.ctrl.GetBox(4))
		assert.NotSame(t, last, f.ctrl.GetBox(5))

		f.ctrl.Wait()
		assert.Equal(t, 2, f.ctrl.scheduler.Runs())
	})

	t.Run("disabled controller still moves boxes", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		box := f.ctrl.GetBox(3)
		f.ctrl.Disable()

		at := m.Position{Line: 1, Column: 1}
		require.NoError(t, f.buf.ApplyEdits([]m.Change{{Range: m.Range{Start: at, End: at}, Text: "\n"}}))
		f.ctrl.Wait()

		assert.Same(t, box, f.ctrl.GetBox(4))
		assert.Equal(t, 4, box.LineNumber())
		assert.Equal(t, 1, f.ctrl.scheduler.Runs())
	})
}

func TestBuildProgram(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		strip bool
		want  string
	}{
		{
			name:  "appends an empty line",
			lines: []string{"x = 1"},
			want:  "x = 1\n",
		},
		{
			name:  "keeps an existing empty line",
			lines: []string{"x = 1", "  "},
			want:  "x = 1\n  ",
		},
		{
			name:  "resets plot windows",
			lines: []string{"plt.show( )", ""},
			want:  "plt.clf()\n",
		},
		{
			name:  "strips seeds while focused",
			lines: []string{"for i in range(3): #@ i = 1", ""},
			strip: true,
			want:  "for i in range(3): i = 1\n",
		},
		{
			name:  "keeps seeds otherwise",
			lines: []string{"x = 1 #@", ""},
			want:  "x = 1 #@\n",
		},
		{
			name: "empty buffer",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildProgram(tt.lines, tt.strip))
		})
	}
}

func TestProjectionController_ViewModes(t *testing.T) {
	t.Run("full mode shows every variable", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.ctrl.ChangeViewMode(m.ViewFull)

		assert.Equal(t, []string{"#", "i", "x", "y"}, f.ctrl.GetBox(3).DisplayedVars())
		assert.Equal(t, m.ViewFull, f.store.Settings().ViewMode)
		assert.False(t, f.store.Settings().DisplayOnlyModifiedVars)
	})

	t.Run("cursor mode shows the cursor box", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.ctrl.ChangeViewMode(m.ViewCursor)
		f.buf.SetCursor(m.Position{Line: 3, Column: 1})

		tables := f.ctrl.Tables()
		require.Len(t, tables, 1)
		assert.Equal(t, 3, tables[0].Line)
	})

	t.Run("stealth mode hides everything", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.ctrl.ChangeViewMode(m.ViewStealth)

		assert.Empty(t, f.ctrl.Tables())
	})

	t.Run("flipping cycles the modes", func(t *testing.T) {
		f := newFixture(t, loopProgram)

		var seen []m.ViewMode
		for range 4 {
			f.ctrl.FlipViewModes()
			seen = append(seen, f.ctrl.ViewMode())
		}

		assert.Equal(t, []m.ViewMode{m.ViewCursorAndReturn, m.ViewCompact, m.ViewStealth, m.ViewFull}, seen)

		f.ctrl.FlipFullAndCursor()
		assert.Equal(t, m.ViewCursorAndReturn, f.ctrl.ViewMode())
		f.ctrl.FlipFullAndCursor()
		assert.Equal(t, m.ViewFull, f.ctrl.ViewMode())
	})

	t.Run("visible range limits the tables", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.ctrl.SetVisibleRange(3, 4)

		assert.Len(t, f.ctrl.Tables(), 2)
	})
}

func TestProjectionController_Settings(t *testing.T) {
	t.Run("a user edit switches to custom", func(t *testing.T) {
		f := newFixture(t, loopProgram)

		require.NoError(t, f.store.Update("cellPadding", 10))

		assert.Equal(t, m.ViewCustom, f.ctrl.ViewMode())
		assert.Equal(t, 10, f.ctrl.Settings().CellPadding)
		assert.Equal(t, m.ViewCustom, f.store.Settings().ViewMode)
	})

	t.Run("a view mode edit switches to that mode", func(t *testing.T) {
		f := newFixture(t, loopProgram)

		require.NoError(t, f.store.Update("viewMode", string(m.ViewCompact)))

		assert.Equal(t, m.ViewCompact, f.ctrl.ViewMode())
		assert.Equal(t, m.LayoutByRow, f.ctrl.Settings().ByRowOrCol)
	})

	t.Run("flip modified variables", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)

		f.ctrl.FlipModVars()

		assert.False(t, f.ctrl.Settings().DisplayOnlyModifiedVars)
		assert.Equal(t, []string{"#", "i", "x", "y"}, f.ctrl.GetBox(3).DisplayedVars())
		assert.Equal(t, m.ViewFull, f.ctrl.ViewMode())
	})

	t.Run("delay is clamped", func(t *testing.T) {
		f := newFixture(t, loopProgram)

		for range 5 {
			f.ctrl.DecreaseDelay()
		}

		assert.Equal(t, 0, f.ctrl.Settings().UpdateDelayMS)

		for range 60 {
			f.ctrl.IncreaseDelay()
		}

		assert.Equal(t, maxUpdateDelay, f.ctrl.Settings().UpdateDelayMS)
		assert.Equal(t, maxUpdateDelay, f.store.Settings().UpdateDelayMS)
	})
}

func TestProjectionController_VarCommands(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		t.Helper()

		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Once()
		f.update(t)
		f.buf.SetCursor(m.Position{Line: 3, Column: 1})

		return f
	}

	t.Run("add in the cursor box", func(t *testing.T) {
		f := setup(t)

		res, err := f.ctrl.RunVarCommand("add x")
		require.NoError(t, err)

		assert.Equal(t, []string{"x"}, res.Changed)
		assert.Equal(t, []string{"#", "y", "x"}, f.ctrl.GetBox(3).DisplayedVars())
		assert.Equal(t, []string{"z"}, f.ctrl.GetBox(4).DisplayedVars())
	})

	t.Run("add in every box", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("add@all x")
		require.NoError(t, err)

		assert.Equal(t, []string{"z", "x"}, f.ctrl.GetBox(4).DisplayedVars())
	})

	t.Run("add in every box then del in the cursor box", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("add@all x")
		require.NoError(t, err)
		_, err = f.ctrl.RunVarCommand("del x")
		require.NoError(t, err)

		assert.Equal(t, []string{"#", "y"}, f.ctrl.GetBox(3).DisplayedVars())
		assert.Equal(t, []string{"z", "x"}, f.ctrl.GetBox(4).DisplayedVars())
	})

	t.Run("add in the cursor box then del in every box", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("add x")
		require.NoError(t, err)
		_, err = f.ctrl.RunVarCommand("del@all x")
		require.NoError(t, err)

		assert.Equal(t, []string{"#", "y"}, f.ctrl.GetBox(3).DisplayedVars())
		assert.Equal(t, []string{"z"}, f.ctrl.GetBox(4).DisplayedVars())
	})

	t.Run("del hides the box when nothing is left", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("del .*")
		require.NoError(t, err)

		assert.False(t, f.ctrl.GetBox(3).HasContent())
	})

	t.Run("keep in every box", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("keep@all x")
		require.NoError(t, err)

		assert.Equal(t, []string{"x"}, f.ctrl.GetBox(1).DisplayedVars())
		assert.Equal(t, []string{"x"}, f.ctrl.GetBox(3).DisplayedVars())
	})

	t.Run("suggests names when nothing matches", func(t *testing.T) {
		f := setup(t)

		res, err := f.ctrl.RunVarCommand("add yy")
		require.NoError(t, err)

		assert.Empty(t, res.Changed)
		assert.Contains(t, res.Suggestions, "y")
	})

	t.Run("bad command", func(t *testing.T) {
		f := setup(t)

		_, err := f.ctrl.RunVarCommand("show x")
		require.ErrorIs(t, err, ErrBadCommand)
	})

	t.Run("hide and restore", func(t *testing.T) {
		f := setup(t)

		f.ctrl.HideAllOtherBoxes(3)
		assert.False(t, f.ctrl.GetBox(1).HasContent())
		assert.True(t, f.ctrl.GetBox(3).HasContent())

		f.ctrl.HideBox(3)
		assert.Empty(t, f.ctrl.Tables())

		f.ctrl.ShowBoxAtCursor()
		assert.True(t, f.ctrl.GetBox(3).HasContent())

		f.ctrl.RestoreAllBoxesToDefault()
		assert.Len(t, f.ctrl.Tables(), 3)
	})
}

func TestProjectionController_LoopFocus(t *testing.T) {
	t.Run("focus, scroll and stop", func(t *testing.T) {
		f := newFixture(t, loopProgram)
		f.runs(okRun(loopTrace)).Times(3)
		f.update(t)

		ctx := context.Background()
		require.NoError(t, f.ctrl.FocusLoopAt(ctx, 3))

		require.NotNil(t, f.ctrl.Focus())
		assert.Equal(t, "0", f.ctrl.Focus().Iter())
		assert.Equal(t, m.ViewFocused, f.ctrl.ViewMode())

		tables := f.ctrl.Tables()
		require.Len(t, tables, 1)
		assert.Equal(t, []string{"0"}, columnValues(tables[0], "y"))

		require.NoError(t, f.ctrl.ScrollLoopFocus(ctx, 1))
		assert.Equal(t, []string{"1"}, columnValues(f.ctrl.GetBox(3).Table(), "y"))

		require.NoError(t, f.ctrl.ScrollLoopFocus(ctx, 1))
		assert.Equal(t, "2", f.ctrl.Focus().Iter())

		require.NoError(t, f.ctrl.ScrollLoopFocus(ctx, 1))
		assert.Equal(t, "0", f.ctrl.Focus().Iter())

		require.NoError(t, f.ctrl.ScrollLoopFocus(ctx, -1))
		assert.Equal(t, "2", f.ctrl.Focus().Iter())

		require.NoError(t, f.ctrl.StopFocus(ctx))
		assert.Nil(t, f.ctrl.Focus())
		assert.Equal(t, m.ViewFull, f.ctrl.ViewMode())
		assert.Len(t, f.ctrl.Tables(), 3)
	})

	t.Run("scroll without focus does nothing", func(t *testing.T) {
		f := newFixture(t, loopProgram)

		require.NoError(t, f.ctrl.ScrollLoopFocus(context.Background(), 1))
		assert.Nil(t, f.ctrl.Focus())
	})

	t.Run("seed focus marks the loop end", func(t *testing.T) {
		program := "for i in range(3):\n    y = i #@\nz = 2"

		f := newFixture(t, program)
		f.interp.On("Run", mock.Anything, mock.Anything).Return(m.RunResult{ExitCode: 1}, nil)
		f.buf.SetCursor(m.Position{Line: 2, Column: 1})

		require.NoError(t, f.ctrl.FocusWithSeed(context.Background()))
		f.ctrl.Wait()

		assert.Equal(t, "    "+endLoopTag, f.buf.Line(3))
		assert.Equal(t, 2, f.ctrl.Focus().Box().LineNumber())
		assert.NotEmpty(t, f.buf.Decorations())
		assert.NotContains(t, f.ctrl.Program(), seedMarker)
	})
}

func TestIsHoleLine(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"y = ??", true},
		{"  y = x + ??", true},
		{"return ??", true},
		{"y == ??", false},
		{"y = 1", false},
		{"??", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, isHoleLine(tt.text))
		})
	}
}
