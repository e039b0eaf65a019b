package model

// UpdatePhase is a step of a box update cycle.
type UpdatePhase int

const (
	UpdateStart UpdatePhase = iota
	UpdateCancel
	UpdateFinish
)

func (p UpdatePhase) String() string {
	switch p {
	case UpdateStart:
		return "start"
	case UpdateCancel:
		return "cancel"
	case UpdateFinish:
		return "finish"
	}

	return "unknown"
}

// BoxUpdateEvent is emitted to update listeners.
type BoxUpdateEvent struct {
	Phase UpdatePhase
}

// IsStart reports a run about to begin.
func (e BoxUpdateEvent) IsStart() bool { return e.Phase == UpdateStart }

// IsCancel reports a superseded update.
func (e BoxUpdateEvent) IsCancel() bool { return e.Phase == UpdateCancel }

// IsFinish reports refreshed boxes.
func (e BoxUpdateEvent) IsFinish() bool { return e.Phase == UpdateFinish }
