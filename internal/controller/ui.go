// Package controller provides the user interfaces that show projection boxes.
package controller

import (
	"fmt"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeSnapshot StartMode = iota
	ModeWatch
)

// Watch is the live editing session a watch-mode UI drives.
type Watch struct {
	Source     m.Path
	Buffer     *adapter.Buffer
	Controller domain.ProjectionController
	// Save writes the buffer back to Source. Nil disables saving.
	Save func() error
}

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode     StartMode
	settings m.Settings
	watch    *Watch
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeSnapshot, settings: m.DefaultSettings()}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// WithSnapshotMode sets the UI to show finished projections.
func WithSnapshotMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeSnapshot
	}
}

// WithWatchMode sets the UI to follow a live session.
func WithWatchMode(w Watch) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeWatch
		c.watch = &w
	}
}

// WithSettings sets the display settings used to lay out tables.
func WithSettings(s m.Settings) StartOption {
	return func(c *StartConfig) {
		c.settings = s
	}
}

// BoxView is the state of one buffer after an update.
type BoxView struct {
	Lines  []string
	Tables []*m.Table
	Mode   m.ViewMode
	// Error is the annotation of the last failed run, if any.
	Error *m.Decoration
}

// NewBoxView captures the current boxes of ctrl.
func NewBoxView(lines []string, ctrl domain.ProjectionController) BoxView {
	view := BoxView{
		Lines:  lines,
		Tables: ctrl.Tables(),
		Mode:   ctrl.ViewMode(),
	}

	if d, ok := ctrl.ErrorAnnotation(); ok {
		view.Error = &d
	}

	return view
}

// SynthesisReport is the outcome of a non-interactive synthesis.
type SynthesisReport struct {
	Source   m.Path
	Line     int
	Text     string
	Success  bool
	Accepted bool
}

func (r SynthesisReport) String() string {
	if !r.Success {
		return fmt.Sprintf("%s:%d: synthesis failed", r.Source, r.Line)
	}

	state := "not written"
	if r.Accepted {
		state = "written"
	}

	return fmt.Sprintf("%s:%d: %s (%s)", r.Source, r.Line, r.Text, state)
}

// UI defines the interface for displaying projection boxes.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(options ...StartOption) error
	Close()
	Wait() // Wait for UI to finish (user closes it)
	DisplaySnapshots(snapshots []m.Snapshot, err error) error
	DisplayUpdate(source m.Path, ev m.BoxUpdateEvent, view BoxView)
	DisplaySynthesis(report SynthesisReport)
}
