package adapter

import (
	"context"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Synthesizer turns example tables into code fragments. A nil result with
// a nil error means the request was superseded or stopped.
type Synthesizer interface {
	Synthesize(ctx context.Context, problem m.SynthProblem) (*m.SynthResult, error)
	// Stop abandons the pending request.
	Stop() bool
	// Connected reports whether requests can be served.
	Connected() bool
}

// NoopSynthesizer answers every request with nothing.
type NoopSynthesizer struct{}

// NewNoopSynthesizer constructs a NoopSynthesizer.
func NewNoopSynthesizer() *NoopSynthesizer {
	return &NoopSynthesizer{}
}

// Synthesize returns no result.
func (NoopSynthesizer) Synthesize(context.Context, m.SynthProblem) (*m.SynthResult, error) {
	return nil, nil //nolint:nilnil // nothing to synthesize
}

// Stop always succeeds.
func (NoopSynthesizer) Stop() bool { return true }

// Connected is always true.
func (NoopSynthesizer) Connected() bool { return true }
