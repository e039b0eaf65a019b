package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

type stubSynth struct {
	connected bool
	closed    bool
	answer    string
}

func (s *stubSynth) Synthesize(context.Context, m.SynthProblem) (*m.SynthResult, error) {
	return &m.SynthResult{Success: true, Result: s.answer}, nil
}

func (s *stubSynth) Stop() bool      { return true }
func (s *stubSynth) Connected() bool { return s.connected }

func (s *stubSynth) Close() error {
	s.closed = true
	return nil
}

func TestRestartingSynthesizer(t *testing.T) {
	t.Run("first start fails", func(t *testing.T) {
		_, err := NewRestartingSynthesizer(func() (Synthesizer, error) {
			return nil, errors.New("no binary")
		}, DiscardLogger())
		require.ErrorContains(t, err, "no binary")
	})

	t.Run("replaces a disconnected synthesizer", func(t *testing.T) {
		first := &stubSynth{connected: true, answer: "a"}
		second := &stubSynth{connected: true, answer: "b"}
		started := []*stubSynth{first, second}

		s, err := NewRestartingSynthesizer(func() (Synthesizer, error) {
			next := started[0]
			started = started[1:]
			return next, nil
		}, DiscardLogger())
		require.NoError(t, err)

		assert.True(t, s.Connected())
		assert.Len(t, started, 1)

		first.connected = false

		assert.True(t, s.Connected())
		assert.True(t, first.closed)
		assert.Empty(t, started)

		res, err := s.Synthesize(context.Background(), m.SynthProblem{})
		require.NoError(t, err)
		assert.Equal(t, "b", res.Result)

		require.NoError(t, s.Close())
		assert.True(t, second.closed)
	})

	t.Run("restart fails", func(t *testing.T) {
		first := &stubSynth{connected: true}
		calls := 0

		s, err := NewRestartingSynthesizer(func() (Synthesizer, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("gone")
			}
			return first, nil
		}, DiscardLogger())
		require.NoError(t, err)

		first.connected = false

		assert.False(t, s.Connected())
		assert.False(t, first.closed)
	})
}
