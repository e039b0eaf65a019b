package domain

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/adapter/mocks"
	m "github.com/mouse-blink/pbox/internal/model"
)

// loopProgram is
//
//	1 x = 1
//	2 for i in range(3):
//	3     y = i
//	4 z = 2
const loopProgram = "x = 1\nfor i in range(3):\n    y = i\nz = 2"

// loopTrace is the tracer output for loopProgram, with zero-based lines.
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

func okRun(output string) m.RunResult {
	return m.RunResult{ExitCode: 0, Output: []byte(output)}
}

type fixture struct {
	buf    *adapter.Buffer
	interp *mocks.MockInterpreter
	store  *adapter.CueConfigStore
	ctrl   *projectionController

	mu     sync.Mutex
	events []m.UpdatePhase
}

type fixtureOption func(*ControllerOptions)

func withSynthesizer(s adapter.Synthesizer) fixtureOption {
	return func(o *ControllerOptions) { o.Synthesizer = s }
}

func withValidator(v adapter.ValueValidator) fixtureOption {
	return func(o *ControllerOptions) { o.Validator = v }
}

func newFixture(t *testing.T, text string, opts ...fixtureOption) *fixture {
	t.Helper()

	store, err := adapter.NewCueConfigStore("", adapter.DiscardLogger())
	require.NoError(t, err)

	f := &fixture{
		buf:    adapter.NewBuffer(text),
		interp: mocks.NewMockInterpreter(t),
		store:  store,
	}

	o := ControllerOptions{
		Editor:      f.buf,
		Interpreter: f.interp,
		Config:      store,
		ErrorDelay:  10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f.ctrl = NewProjectionController(o).(*projectionController)
	f.ctrl.OnUpdateEvent(func(ev m.BoxUpdateEvent) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.events = append(f.events, ev.Phase)
	})

	t.Cleanup(f.ctrl.Close)

	return f
}

// runs makes every interpreter call return res.
func (f *fixture) runs(res m.RunResult) *mock.Call {
	return f.interp.On("Run", mock.Anything, mock.Anything).Return(res, nil)
}

func (f *fixture) update(t *testing.T) *m.Execution {
	t.Helper()

	exec, err := f.ctrl.UpdateBoxes(context.Background(), nil)
	require.NoError(t, err)

	return exec
}

func (f *fixture) phases() []m.UpdatePhase {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]m.UpdatePhase(nil), f.events...)
}

func columnNames(t *m.Table) []string {
	if t == nil {
		return nil
	}

	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Header())
	}

	return out
}

func columnValues(t *m.Table, header string) []string {
	var out []string

	for i, c := range t.Columns {
		if c.Header() != header {
			continue
		}

		for _, r := range t.Rows {
			out = append(out, r.Cells[i].Value)
		}
	}

	return out
}
