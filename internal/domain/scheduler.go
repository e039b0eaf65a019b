package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mouse-blink/pbox/internal/adapter"
	m "github.com/mouse-blink/pbox/internal/model"
)

// Ticket is one debounce wait handed out by a Delayer.
type Ticket struct {
	delay time.Duration
	done  chan struct{}
	once  sync.Once
}

func newTicket(delay time.Duration) *Ticket {
	return &Ticket{delay: delay, done: make(chan struct{})}
}

// Delay returns how long Wait blocks.
func (t *Ticket) Delay() time.Duration {
	return t.delay
}

// Wait blocks for the ticket's delay. It returns ErrCancelled when a newer
// ticket replaced this one first. Zero-delay tickets return immediately.
func (t *Ticket) Wait(ctx context.Context) error {
	if t.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(t.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-t.done:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticket) cancel() {
	t.once.Do(func() { close(t.done) })
}

// Delayer keeps at most one ticket waiting.
type Delayer struct {
	mu      sync.Mutex
	pending *Ticket
}

// Schedule cancels the waiting ticket, if any, and returns a new one.
func (d *Delayer) Schedule(delay time.Duration) *Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.cancel()
		d.pending = nil
	}

	t := newTicket(delay)
	if delay > 0 {
		d.pending = t
	}

	return t
}

// Cancel cancels the waiting ticket.
func (d *Delayer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.cancel()
		d.pending = nil
	}
}

// DelayFor returns the debounce for an edit. Missing events and edits that
// span or insert lines run at once.
func DelayFor(ev *m.EditEvent, base time.Duration) time.Duration {
	if ev == nil {
		return 0
	}

	for _, c := range ev.Changes {
		if c.RemovedLines() > 0 || c.AddedLines() > 0 {
			return 0
		}
	}

	return base
}

type inflightRun struct {
	cancel context.CancelFunc
	done   chan struct{}
	killed atomic.Bool
}

// RunScheduler debounces edits and keeps at most one interpreter run alive.
type RunScheduler struct {
	interp  adapter.Interpreter
	logger  *slog.Logger
	delayer Delayer

	mu       sync.Mutex
	inflight *inflightRun
	runs     int
}

// NewRunScheduler wraps an interpreter.
func NewRunScheduler(interp adapter.Interpreter, logger *slog.Logger) *RunScheduler {
	return &RunScheduler{interp: interp, logger: logger}
}

// Schedule replaces the pending debounce with one for ev.
func (s *RunScheduler) Schedule(ev *m.EditEvent, base time.Duration) *Ticket {
	return s.delayer.Schedule(DelayFor(ev, base))
}

// CancelPending drops the waiting ticket.
func (s *RunScheduler) CancelPending() {
	s.delayer.Cancel()
}

// Runs returns how many interpreter invocations were started.
func (s *RunScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runs
}

// Run kills the run in flight, waits for it to exit and then runs req. A
// run killed this way returns ErrCancelled.
func (s *RunScheduler) Run(ctx context.Context, req m.RunRequest) (m.RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &inflightRun{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.inflight
	s.inflight = run
	s.mu.Unlock()

	defer func() {
		close(run.done)

		s.mu.Lock()
		if s.inflight == run {
			s.inflight = nil
		}
		s.mu.Unlock()
	}()

	if prev != nil {
		prev.killed.Store(true)
		prev.cancel()
		<-prev.done
	}

	if run.killed.Load() {
		return m.RunResult{}, ErrCancelled
	}

	if err := runCtx.Err(); err != nil {
		return m.RunResult{}, err
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.logger.Debug("run started", "bytes", len(req.Program), "values", len(req.Values))

	res, err := s.interp.Run(runCtx, req)
	if run.killed.Load() {
		s.logger.Debug("run killed")
		return m.RunResult{}, ErrCancelled
	}

	if err != nil {
		return res, fmt.Errorf("run program: %w", err)
	}

	s.logger.Debug("run finished", "exit_code", res.ExitCode)

	return res, nil
}

// Execute waits out the debounce for ev and then runs the request built
// after the wait.
func (s *RunScheduler) Execute(ctx context.Context, ev *m.EditEvent, base time.Duration, build func() m.RunRequest) (m.RunResult, error) {
	if err := s.Schedule(ev, base).Wait(ctx); err != nil {
		return m.RunResult{}, err
	}

	return s.Run(ctx, build())
}
