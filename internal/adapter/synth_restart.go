package adapter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	m "github.com/mouse-blink/pbox/internal/model"
)

// RestartingSynthesizer starts a fresh synthesizer from its factory when
// the current one has gone away.
type RestartingSynthesizer struct {
	start  func() (Synthesizer, error)
	logger *slog.Logger

	mu      sync.Mutex
	current Synthesizer
}

// NewRestartingSynthesizer starts the first synthesizer from start.
func NewRestartingSynthesizer(start func() (Synthesizer, error), logger *slog.Logger) (*RestartingSynthesizer, error) {
	first, err := start()
	if err != nil {
		return nil, err
	}

	return &RestartingSynthesizer{start: start, logger: logger, current: first}, nil
}

func (s *RestartingSynthesizer) synthesizer() Synthesizer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Synthesize forwards to the current synthesizer.
func (s *RestartingSynthesizer) Synthesize(ctx context.Context, problem m.SynthProblem) (*m.SynthResult, error) {
	return s.synthesizer().Synthesize(ctx, problem)
}

// Stop forwards to the current synthesizer.
func (s *RestartingSynthesizer) Stop() bool {
	return s.synthesizer().Stop()
}

// Connected reports whether the current synthesizer serves requests,
// replacing it first when it does not.
func (s *RestartingSynthesizer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Connected() {
		return true
	}

	next, err := s.start()
	if err != nil {
		s.logger.Warn("restart synthesizer", "error", err)
		return false
	}

	closeSynth(s.current, s.logger)
	s.current = next
	s.logger.Info("synthesizer restarted")

	return next.Connected()
}

// Close closes the current synthesizer.
func (s *RestartingSynthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.current.(interface{ Close() error }); ok {
		return c.Close()
	}

	return nil
}

func closeSynth(synth Synthesizer, logger *slog.Logger) {
	c, ok := synth.(interface{ Close() error })
	if !ok {
		return
	}

	if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("close synthesizer", "error", err)
	}
}
