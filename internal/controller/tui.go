package controller

import (
	"errors"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/pbox/internal/model"
)

// ErrNoWatch is returned when watch mode starts without a session.
var ErrNoWatch = errors.New("watch mode needs a session")

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	err     error
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start runs the Bubble Tea program in the background.
func (t *TUI) Start(options ...StartOption) error {
	cfg := newStartConfig(options)

	var model tea.Model

	switch cfg.mode {
	case ModeWatch:
		if cfg.watch == nil || cfg.watch.Buffer == nil || cfg.watch.Controller == nil {
			return ErrNoWatch
		}

		model = newWatchModel(*cfg.watch, cfg.settings)
	default:
		model = newSnapshotModel(cfg.settings)
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen(), tea.WithMouseCellMotion())
	done := make(chan struct{})

	t.mu.Lock()
	t.program = program
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
		}
	}()

	return nil
}

// Close stops the program and waits for it to exit.
func (t *TUI) Close() {
	t.mu.Lock()
	program, done := t.program, t.done
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the user quits.
func (t *TUI) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Err returns the error the program exited with.
func (t *TUI) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

// DisplaySnapshots hands the snapshots to the running program.
func (t *TUI) DisplaySnapshots(snapshots []m.Snapshot, err error) error {
	t.send(snapshotsMsg{snapshots: snapshots, err: err})
	return err
}

// DisplayUpdate forwards a box update to the running program.
func (t *TUI) DisplayUpdate(source m.Path, ev m.BoxUpdateEvent, view BoxView) {
	t.send(updateMsg{source: source, event: ev, view: view})
}

// DisplaySynthesis forwards a synthesis outcome to the running program.
func (t *TUI) DisplaySynthesis(report SynthesisReport) {
	t.send(synthReportMsg{report: report})
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}
