package domain

import (
	"errors"

	"github.com/mouse-blink/pbox/internal/domain/trace"
)

var (
	// ErrCancelled marks a superseded wait, run or synthesis request.
	ErrCancelled = errors.New("cancelled")
	// ErrUnbalancedLoop is re-exported from the trace package.
	ErrUnbalancedLoop = trace.ErrUnbalancedLoop
	// ErrBranchingTrace is re-exported from the trace package.
	ErrBranchingTrace = trace.ErrBranchingTrace
	// ErrForeignLoop is returned when a box mixes environments of
	// different loops while scrolling a loop focus.
	ErrForeignLoop = errors.New("environment belongs to a different loop")
	// ErrNoSession is returned by synthesis operations without a session.
	ErrNoSession = errors.New("no synthesis session")
	// ErrSynthDisconnected is returned when the synthesizer is unreachable.
	ErrSynthDisconnected = errors.New("cannot start the synthesizer, please make sure it is running")
	// ErrDisabled is returned when updates are requested while disabled.
	ErrDisabled = errors.New("projection boxes are disabled")
	// ErrBadCommand is returned for unparseable variable commands.
	ErrBadCommand = errors.New("bad variable command")
)
