package controller

import (
	"time"

	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

type tickMsg time.Time

// Message types.
type snapshotsMsg struct {
	snapshots []m.Snapshot
	err       error
}

type updateMsg struct {
	source m.Path
	event  m.BoxUpdateEvent
	view   BoxView
}

type synthReportMsg struct {
	report SynthesisReport
}

// actionMsg reports the end of a controller call made off the UI loop.
type actionMsg struct {
	status string
	err    error
}

type synthStartedMsg struct {
	session *domain.SynthesisSession
	err     error
}

// List item types.
type snapshotItem struct {
	path     string
	boxes    int
	exitCode int
}

func (s snapshotItem) FilterValue() string {
	return s.path
}
