package controller

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/adapter/mocks"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

const loopSource = "x = 1\nfor i in range(3):\n    y = i\nz = 2"

// loopTrace is the tracer output for loopSource.
const loopTrace = `[0,
 {"0": ["x"], "1": ["i"], "2": ["y"], "3": ["z"]},
 {"0": [{"#": "", "$": "", "time": 0, "lineno": 0, "next_lineno": 1, "x": "1"}],
  "1": [{"#": "", "$": "", "time": 1, "lineno": 1, "prev_lineno": 0, "next_lineno": 2, "x": "1", "i": "0"}],
  "2": [
   {"begin_loop": "0", "#": "0", "$": "1"},
   {"#": "0", "$": "1", "time": 2, "lineno": 2, "prev_lineno": 1, "next_lineno": 2, "x": "1", "i": "0", "y": "0"},
   {"#": "1", "$": "1", "time": 3, "lineno": 2, "prev_lineno": 2, "next_lineno": 2, "x": "1", "i": "1", "y": "1"},
   {"#": "2", "$": "1", "time": 4, "lineno": 2, "prev_lineno": 2, "next_lineno": 3, "x": "1", "i": "2", "y": "2"},
   {"end_loop": "3", "#": "3", "$": "1"}
  ],
  "3": [{"#": "", "$": "", "time": 5, "lineno": 3, "prev_lineno": 2, "x": "1", "i": "2", "y": "2", "z": "2"}]
 }]`

func loopTable() *m.Table {
	row := func(n string) m.Row {
		return m.Row{Iter: n, LoopID: "2", Cells: []m.Cell{{Var: "#", Value: n}, {Var: "y", Value: n}}}
	}

	return &m.Table{
		Line:    3,
		Columns: []m.Column{{Var: "#"}, {Var: "y"}},
		Rows:    []m.Row{row("0"), row("1"), row("2")},
	}
}

func loopSnapshot(source string) m.Snapshot {
	return m.Snapshot{
		Source: m.Path(source),
		Mode:   m.ViewFull,
		Lines:  []string{"x = 1", "for i in range(3):", "    y = i", "z = 2"},
		Tables: []m.Table{*loopTable()},
	}
}

// newTestWatch builds a live session over loopSource whose runs all
// return loopTrace.
func newTestWatch(t *testing.T) Watch {
	t.Helper()

	buf := adapter.NewBuffer(loopSource)

	interp := mocks.NewMockInterpreter(t)
	interp.On("Run", mock.Anything, mock.Anything).
		Return(m.RunResult{Output: []byte(loopTrace)}, nil).Maybe()

	store, err := adapter.NewCueConfigStore("", adapter.DiscardLogger())
	require.NoError(t, err)

	ctrl := domain.NewProjectionController(domain.ControllerOptions{
		Editor:      buf,
		Interpreter: interp,
		Config:      store,
		Dir:         "/work",
	})
	t.Cleanup(ctrl.Close)

	return Watch{Source: "loop.py", Buffer: buf, Controller: ctrl}
}

func stubClipboard(t *testing.T) *string {
	t.Helper()

	var copied string

	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}

	t.Cleanup(func() { writeClipboard = orig })

	return &copied
}
