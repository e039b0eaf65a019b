package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	m "github.com/mouse-blink/pbox/internal/model"
)

// crashedID is the id the synthesizer reports when it fails internally.
const crashedID = -1

type pendingProblem struct {
	id     int
	result chan m.SynthResult
	gone   chan struct{}
	once   sync.Once
}

func (p *pendingProblem) abandon() {
	p.once.Do(func() { close(p.gone) })
}

// ProcessSynthesizer talks to a synthesizer child process that reads one
// JSON problem per line on stdin and answers with one JSON result per line
// on stdout.
type ProcessSynthesizer struct {
	logger *slog.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser

	mu      sync.Mutex
	idx     int
	pending *pendingProblem
	closed  bool
	group   errgroup.Group
}

// StartProcessSynthesizer launches argv and starts pumping its output.
func StartProcessSynthesizer(argv []string, logger *slog.Logger) (*ProcessSynthesizer, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty synthesizer command")
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // configured by the user

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("synthesizer stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("synthesizer stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("synthesizer stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start synthesizer: %w", err)
	}

	logger.Info("synthesizer started", "pid", cmd.Process.Pid)

	s := newProcessSynthesizer(stdin, logger)
	s.cmd = cmd
	s.pump(stdout, stderr)

	return s, nil
}

func newProcessSynthesizer(stdin io.WriteCloser, logger *slog.Logger) *ProcessSynthesizer {
	return &ProcessSynthesizer{stdin: stdin, logger: logger, idx: -1}
}

// pump reads results and stderr until the process closes its streams.
func (s *ProcessSynthesizer) pump(stdout, stderr io.Reader) {
	s.group.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		for scanner.Scan() {
			s.deliver(scanner.Bytes())
		}

		s.markClosed()

		return scanner.Err()
	})
	s.group.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.logger.Debug("synthesizer stderr", "line", scanner.Text())
		}

		return scanner.Err()
	})
}

func (s *ProcessSynthesizer) deliver(line []byte) {
	var res m.SynthResult
	if err := json.Unmarshal(line, &res); err != nil {
		s.logger.Warn("unparseable synthesizer output", "output", string(line), "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.pending != nil && res.ID == s.pending.id:
		s.pending.result <- res
		s.pending = nil
	case res.ID == crashedID:
		s.logger.Error("synthesizer crashed", "result", res.Result)
	default:
		s.logger.Debug("discarding stale synthesizer result", "id", res.ID)
	}
}

func (s *ProcessSynthesizer) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.pending != nil {
		s.pending.abandon()
		s.pending = nil
	}
}

// Synthesize sends problem with a fresh id, superseding the pending one,
// and waits for the matching answer.
func (s *ProcessSynthesizer) Synthesize(ctx context.Context, problem m.SynthProblem) (*m.SynthResult, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("synthesizer is not running")
	}

	if s.pending != nil {
		s.pending.abandon()
	}

	s.idx++
	problem.ID = s.idx
	p := &pendingProblem{id: s.idx, result: make(chan m.SynthResult, 1), gone: make(chan struct{})}
	s.pending = p

	data, err := json.Marshal(problem)
	if err == nil {
		_, err = s.stdin.Write(append(data, '\n'))
	}

	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("send problem %d: %w", problem.ID, err)
	}

	s.logger.Debug("synthesis requested", "id", problem.ID)

	select {
	case res := <-p.result:
		return &res, nil
	case <-p.gone:
		return nil, nil //nolint:nilnil // superseded
	case <-ctx.Done():
		s.Stop()
		return nil, ctx.Err()
	}
}

// Stop abandons the pending request.
func (s *ProcessSynthesizer) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false
	}

	s.pending.abandon()
	s.pending = nil

	return true
}

// Connected reports whether the process still reads its input.
func (s *ProcessSynthesizer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closed
}

// Close kills the process and waits for the pumps to finish.
func (s *ProcessSynthesizer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	_ = s.stdin.Close()

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	err := s.group.Wait()

	if s.cmd != nil {
		_ = s.cmd.Wait()
	}

	return err
}
