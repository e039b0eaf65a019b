package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/domain/trace"
	m "github.com/mouse-blink/pbox/internal/model"
)

const (
	defaultErrorDelay = 1500 * time.Millisecond
	delayStep         = 100
	maxUpdateDelay    = 5000
)

var showCall = regexp.MustCompile(`\.show\(\s*\)`)

// ProjectionController keeps the boxes of one editor in sync with the
// program the editor holds.
//
//nolint:interfacebloat // one controller per editor drives every box command
type ProjectionController interface {
	// UpdateBoxes reconciles boxes with ev, waits out the debounce, runs
	// the program and recomputes every box.
	UpdateBoxes(ctx context.Context, ev *m.EditEvent) (*m.Execution, error)
	// RunProgram runs the current program at once.
	RunProgram(ctx context.Context) (m.RunResult, error)
	// Program returns the text sent to the interpreter.
	Program() string
	GetBox(line int) *Box
	Boxes() []*Box
	// Tables returns the tables of the boxes visible in the current view.
	Tables() []*m.Table
	Execution() *m.Execution
	Settings() m.Settings

	ViewMode() m.ViewMode
	ChangeViewMode(mode m.ViewMode)
	FlipViewModes()
	FlipFullAndCursor()
	FlipModVars()
	SetVisibleRange(first, last int)

	Enable()
	Disable()
	IsEnabled() bool
	OnUpdateEvent(fn func(m.BoxUpdateEvent)) (cancel func())

	RunVarCommand(cmd string) (VarCommandResult, error)
	VarRemoveInBox(line int, pattern string) error
	VarRemoveInAllBoxes(pattern string) error
	VarAddInBox(line int, pattern string) error
	VarAddInAllBoxes(pattern string) error
	VarKeepOnlyInBox(line int, pattern string) error
	VarKeepOnlyInAllBoxes(pattern string) error
	VarAddAllInBox(line int)
	VarAddAllInAllBoxes()
	HideBox(line int)
	HideAllOtherBoxes(line int)
	RestoreBoxToDefault(line int)
	RestoreAllBoxesToDefault()
	ShowBoxAtCursor()

	Focus() *LoopFocus
	FocusLoopAt(ctx context.Context, line int) error
	FocusWithSeed(ctx context.Context) error
	ScrollLoopFocus(ctx context.Context, delta int) error
	StopFocus(ctx context.Context) error

	IncreaseDelay()
	DecreaseDelay()
	ChangedLines() int
	ResetChangedLines()
	// ErrorAnnotation returns the error decoration currently shown.
	ErrorAnnotation() (m.Decoration, bool)

	StartSynthesis(ctx context.Context, line int) (*SynthesisSession, error)
	Synthesis() *SynthesisSession

	// Wait blocks until updates started by editor events are done.
	Wait()
	Close()
}

// ControllerOptions wires a ProjectionController to its collaborators.
// Only Editor and Interpreter are required.
type ControllerOptions struct {
	Editor      adapter.Editor
	Interpreter adapter.Interpreter
	Config      adapter.ConfigStore
	Synthesizer adapter.Synthesizer
	Validator   adapter.ValueValidator
	Logger      *slog.Logger
	// Dir is the working directory of the program.
	Dir string
	// ErrorDelay is how long a failed run waits before it is annotated.
	ErrorDelay time.Duration
}

type projectionController struct {
	editor     adapter.Editor
	config     adapter.ConfigStore
	scheduler  *RunScheduler
	synth      adapter.Synthesizer
	validator  adapter.ValueValidator
	logger     *slog.Logger
	dir        string
	errorDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	mu         sync.Mutex
	registry   *Registry
	global     *DeltaVarSet
	index      *trace.Index
	settings   m.Settings
	visibility Visibility
	focus      *LoopFocus
	changed    map[int]struct{}
	enabled    bool
	errorID    string
	errorDeco  *m.Decoration
	errDelayer Delayer
	session    *SynthesisSession

	// pushing is set while the controller writes its own settings to
	// the config store, so the change echo is not taken as a user edit.
	pushing atomic.Int32

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(m.BoxUpdateEvent)
	unsubs  []func()
}

// NewProjectionController creates a controller and subscribes it to the
// editor and the config store.
func NewProjectionController(opts ControllerOptions) ProjectionController {
	if opts.Logger == nil {
		opts.Logger = adapter.DiscardLogger()
	}

	if opts.Synthesizer == nil {
		opts.Synthesizer = adapter.NewNoopSynthesizer()
	}

	if opts.Validator == nil {
		opts.Validator = adapter.NewStarlarkValidator()
	}

	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = defaultErrorDelay
	}

	if opts.Config == nil {
		// an empty path never fails
		opts.Config, _ = adapter.NewCueConfigStore("", opts.Logger)
	}

	global := NewDeltaVarSet()
	ctx, cancel := context.WithCancel(context.Background())

	c := &projectionController{
		editor:     opts.Editor,
		config:     opts.Config,
		scheduler:  NewRunScheduler(opts.Interpreter, opts.Logger),
		synth:      opts.Synthesizer,
		validator:  opts.Validator,
		logger:     opts.Logger,
		dir:        opts.Dir,
		errorDelay: opts.ErrorDelay,
		ctx:        ctx,
		cancel:     cancel,
		registry:   NewRegistry(global),
		global:     global,
		settings:   opts.Config.Settings(),
		visibility: visibleAll,
		enabled:    true,
		subs:       map[int]func(m.BoxUpdateEvent){},
	}

	if vis, _, ok := viewModePolicy(c.settings.ViewMode, c.settings); ok {
		c.visibility = vis
	}

	lines := c.editor.Lines()
	c.registry.Pad(len(lines))
	c.registry.Snapshot(lines)

	c.unsubs = append(c.unsubs,
		c.editor.OnContentChange(c.onContentChange),
		c.config.OnChange(c.onConfigChange),
	)

	return c
}

func (c *projectionController) UpdateBoxes(ctx context.Context, ev *m.EditEvent) (*m.Execution, error) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil, ErrDisabled
	}

	c.reconcileLocked(ev)
	ticket := c.scheduler.Schedule(ev, c.settings.UpdateDelay())
	c.mu.Unlock()

	return c.runUpdate(ctx, ev, ticket)
}

// forceUpdate runs the program at once, even while disabled.
func (c *projectionController) forceUpdate(ctx context.Context) (*m.Execution, error) {
	c.mu.Lock()
	c.reconcileLocked(nil)
	ticket := c.scheduler.Schedule(nil, 0)
	c.mu.Unlock()

	return c.runUpdate(ctx, nil, ticket)
}

// onContentChange reconciles boxes right away and leaves the debounced run
// to a background update.
func (c *projectionController) onContentChange(ev m.EditEvent) {
	c.mu.Lock()
	c.reconcileLocked(&ev)

	if !c.enabled {
		c.mu.Unlock()
		return
	}

	ticket := c.scheduler.Schedule(&ev, c.settings.UpdateDelay())
	c.mu.Unlock()

	c.bg.Add(1)

	go func() {
		defer c.bg.Done()

		if _, err := c.runUpdate(c.ctx, &ev, ticket); err != nil {
			if !errors.Is(err, ErrCancelled) && !errors.Is(err, context.Canceled) {
				c.logger.Warn("update boxes", "error", err)
			}

			return
		}

		c.afterContentUpdate(c.ctx, &ev)
	}()
}

// afterContentUpdate starts a loop focus or a synthesis session when the
// edit on the cursor line created a seed or a hole.
func (c *projectionController) afterContentUpdate(ctx context.Context, ev *m.EditEvent) {
	if len(ev.Changes) > 0 {
		r := ev.Changes[0].Range
		cursor := c.editor.Cursor().Line
		lineCount := c.editor.LineCount()

		for i := r.Start.Line; i <= r.End.Line; i++ {
			if i > lineCount || i != cursor {
				continue
			}

			text := c.editor.Line(i)

			if isSeedLine(text) {
				if err := c.FocusWithSeed(ctx); err != nil {
					c.logger.Warn("focus loop", "line", i, "error", err)
				}
			}

			if c.Settings().SupportSynthesis && isHoleLine(text) {
				if _, err := c.StartSynthesis(ctx, i); err != nil && !errors.Is(err, ErrCancelled) {
					c.logger.Warn("synthesis failed", "line", i, "error", err)
				}

				return
			}
		}
	}

	c.mu.Lock()
	edit := c.resetFocusLocked(false)
	c.mu.Unlock()

	c.applyFocusEdit(edit)
}

func (c *projectionController) runUpdate(ctx context.Context, ev *m.EditEvent, ticket *Ticket) (*m.Execution, error) {
	if err := ticket.Wait(ctx); err != nil {
		c.emit(m.UpdateCancel)
		return nil, err
	}

	c.emit(m.UpdateStart)

	res, err := c.RunProgram(ctx)
	if err != nil {
		c.emit(m.UpdateCancel)
		return nil, err
	}

	exec, err := c.consume(res, ev)

	if perr := c.refresh(); perr != nil {
		err = errors.Join(err, perr)
	}

	c.emit(m.UpdateFinish)

	return exec, err
}

// consume installs the trace of a usable run or schedules the error
// annotation of a failed one.
func (c *projectionController) consume(res m.RunResult, ev *m.EditEvent) (*m.Execution, error) {
	exec := &m.Execution{ExitCode: res.ExitCode}

	var perr error

	usable := res.Usable()
	if usable {
		parsed, err := trace.Parse(res.Output)
		if err != nil {
			perr = fmt.Errorf("read trace: %w", err)
			usable = false
		} else {
			exec = &parsed
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.trackChangedLinesLocked(usable, ev)

	if usable {
		c.index = trace.NewIndex(*exec)
		c.clearErrorLocked()
	} else {
		c.showErrorLocked(res.Stderr)
	}

	return exec, perr
}

func (c *projectionController) RunProgram(ctx context.Context) (m.RunResult, error) {
	return c.scheduler.Run(ctx, m.RunRequest{Program: c.Program(), Dir: c.dir})
}

func (c *projectionController) Program() string {
	lines := c.editor.Lines()

	c.mu.Lock()
	focused := c.focus != nil
	c.mu.Unlock()

	return buildProgram(lines, focused)
}

// buildProgram strips seed markers while a loop is focused, turns plot
// windows into figure resets and makes sure the text ends with an empty
// line.
func buildProgram(lines []string, stripSeeds bool) string {
	lines = slices.Clone(lines)

	if stripSeeds {
		removeSeeds(lines)
	}

	for i, l := range lines {
		if loc := showCall.FindStringIndex(l); loc != nil {
			lines[i] = l[:loc[0]] + ".clf()" + l[loc[1]:]
		}
	}

	if len(lines) == 0 || strings.TrimSpace(lines[len(lines)-1]) != "" {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func (c *projectionController) reconcileLocked(ev *m.EditEvent) {
	lines := c.editor.Lines()
	c.registry.Pad(len(lines))
	c.registry.Reconcile(ev, lines)
}

// trackChangedLinesLocked remembers the lines edited since the last usable
// run.
func (c *projectionController) trackChangedLinesLocked(usable bool, ev *m.EditEvent) {
	if ev == nil {
		return
	}

	if usable {
		c.changed = nil
		return
	}

	if c.changed == nil {
		c.changed = map[int]struct{}{}
	}

	for _, ch := range ev.Changes {
		for i := ch.Range.Start.Line; i <= ch.Range.End.Line; i++ {
			c.changed[i] = struct{}{}
		}
	}
}

// refresh recomputes every box from the current trace.
func (c *projectionController) refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.projectAllLocked(Projection{})
}

// projectAllLocked recomputes every box. extra carries the synthesis
// columns, if any.
func (c *projectionController) projectAllLocked(extra Projection) error {
	lines := c.editor.Lines()
	c.registry.Pad(len(lines))

	p := Projection{
		Settings: c.settings,
		Line: func(n int) string {
			if n < 1 || n > len(lines) {
				return ""
			}

			return lines[n-1]
		},
		Index:        c.index,
		Focus:        c.focus,
		ChangedLines: len(c.changed),
		OutVars:      extra.OutVars,
		PrevEnvs:     extra.PrevEnvs,
	}

	var errs []error

	if c.focus != nil {
		// the focus reads its loop ids from this box
		if _, err := computeEnvs(c.focus.box, p); err != nil {
			errs = append(errs, err)
		}
	}

	for _, b := range c.registry.Boxes() {
		if err := Project(b, p); err != nil {
			c.logger.Warn("project box", "line", b.LineNumber(), "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *projectionController) GetBox(line int) *Box {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Get(line)
}

func (c *projectionController) Boxes() []*Box {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Boxes()
}

func (c *projectionController) Tables() []*m.Table {
	lines := c.editor.Lines()
	cursor := c.editor.Cursor().Line

	c.mu.Lock()
	defer c.mu.Unlock()

	var tables []*m.Table

	for _, b := range c.registry.Boxes() {
		n := b.LineNumber()
		if n > len(lines) || !b.HasContent() {
			continue
		}

		if c.visibility(b, lines[n-1], cursor) {
			tables = append(tables, b.Table())
		}
	}

	return tables
}

func (c *projectionController) Execution() *m.Execution {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		return nil
	}

	exec := c.index.Execution()

	return &exec
}

func (c *projectionController) Settings() m.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings
}

func (c *projectionController) ViewMode() m.ViewMode {
	return c.Settings().ViewMode
}

// ChangeViewMode switches the visibility policy and the settings preset of
// mode and restores every box to its default variables.
func (c *projectionController) ChangeViewMode(mode m.ViewMode) {
	c.mu.Lock()
	old := c.settings
	c.settings.ViewMode = mode

	if vis, preset, ok := viewModePolicy(mode, c.settings); ok {
		c.visibility = vis
		c.settings = preset
		c.restoreAllLocked()

		if err := c.projectAllLocked(Projection{}); err != nil {
			c.logger.Debug("change view mode", "error", err)
		}
	}

	updated := c.settings
	c.mu.Unlock()

	c.logger.Debug("view mode changed", "mode", mode)
	c.pushSettings(old, updated)
}

func (c *projectionController) FlipViewModes() {
	c.ChangeViewMode(nextViewMode(c.ViewMode()))
}

func (c *projectionController) FlipFullAndCursor() {
	c.ChangeViewMode(flipFullAndCursor(c.ViewMode()))
}

func (c *projectionController) FlipModVars() {
	c.updateSettings(func(s *m.Settings) {
		s.DisplayOnlyModifiedVars = !s.DisplayOnlyModifiedVars
	})
}

func (c *projectionController) SetVisibleRange(first, last int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visibility = VisibleRange(first, last)
}

func (c *projectionController) IncreaseDelay() {
	c.updateSettings(func(s *m.Settings) {
		s.UpdateDelayMS = min(s.UpdateDelayMS+delayStep, maxUpdateDelay)
	})
}

func (c *projectionController) DecreaseDelay() {
	c.updateSettings(func(s *m.Settings) {
		s.UpdateDelayMS = min(max(s.UpdateDelayMS-delayStep, 0), maxUpdateDelay)
	})
}

// updateSettings applies a programmatic change without leaving the
// current view mode, then recomputes the boxes.
func (c *projectionController) updateSettings(fn func(*m.Settings)) {
	c.mu.Lock()
	old := c.settings
	fn(&c.settings)

	if err := c.projectAllLocked(Projection{}); err != nil {
		c.logger.Debug("update settings", "error", err)
	}

	updated := c.settings
	c.mu.Unlock()

	c.pushSettings(old, updated)
}

// pushSettings writes the keys that differ to the config store.
func (c *projectionController) pushSettings(old, updated m.Settings) {
	keys := adapter.ChangedKeys(old, updated)
	if len(keys) == 0 {
		return
	}

	fields, err := adapter.SettingsFields(updated)
	if err != nil {
		c.logger.Warn("save settings", "error", err)
		return
	}

	c.pushing.Add(1)
	defer c.pushing.Add(-1)

	for _, k := range keys {
		if err := c.config.Update(k, fields[k]); err != nil {
			c.logger.Warn("save setting", "key", k, "error", err)
		}
	}
}

// onConfigChange applies settings edited by the user. Editing the view
// mode switches to it; editing anything else switches to Custom.
func (c *projectionController) onConfigChange(_ []string) {
	if c.pushing.Load() > 0 {
		return
	}

	stored := c.config.Settings()

	c.mu.Lock()
	keys := adapter.ChangedKeys(c.settings, stored)

	if len(keys) == 0 {
		c.mu.Unlock()
		return
	}

	c.settings = stored

	if slices.Contains(keys, "viewMode") {
		c.mu.Unlock()
		c.ChangeViewMode(stored.ViewMode)

		return
	}

	old := c.settings
	c.settings.ViewMode = m.ViewCustom

	if err := c.projectAllLocked(Projection{}); err != nil {
		c.logger.Debug("apply settings", "error", err)
	}

	updated := c.settings
	c.mu.Unlock()

	c.logger.Info("settings changed", "keys", keys)
	c.pushSettings(old, updated)
}

func (c *projectionController) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = true
}

func (c *projectionController) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
}

func (c *projectionController) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

func (c *projectionController) OnUpdateEvent(fn func(m.BoxUpdateEvent)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()

		delete(c.subs, id)
	}
}

func (c *projectionController) emit(phase m.UpdatePhase) {
	c.subMu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	fns := make([]func(m.BoxUpdateEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.subMu.Unlock()

	ev := m.BoxUpdateEvent{Phase: phase}
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *projectionController) RunVarCommand(cmd string) (VarCommandResult, error) {
	command, err := ParseVarCommand(cmd)
	if err != nil {
		return VarCommandResult{}, err
	}

	c.mu.Lock()

	box := c.registry.Get(max(c.editor.Cursor().Line, 1))

	universe := box.AllVars()
	if command.All {
		seen := NewVarSet()
		for _, b := range c.registry.Boxes() {
			for _, v := range b.AllVars() {
				seen.Add(v)
			}
		}

		universe = seen.Slice()
	}

	c.mu.Unlock()

	changed := NewVarSet()

	switch {
	case command.Op == VarAdd && command.All:
		err = c.varAddAll(command.Pattern, changed)
	case command.Op == VarAdd:
		err = c.withBox(box.LineNumber(), func(b *Box) error { return b.VarAdd(command.Pattern, changed) })
	case command.Op == VarDel && command.All:
		err = c.varRemoveAll(command.Pattern, changed)
	case command.Op == VarDel:
		err = c.withBox(box.LineNumber(), func(b *Box) error { return b.VarRemove(command.Pattern, changed) })
	case command.Op == VarKeep && command.All:
		err = c.varKeepOnlyAll(command.Pattern, changed)
	default:
		err = c.withBox(box.LineNumber(), func(b *Box) error { return b.VarKeepOnly(command.Pattern, changed, changed) })
	}

	res := VarCommandResult{Command: command, Changed: changed.Slice()}
	if !matchesAny(command.Pattern, universe) {
		res.Suggestions = suggest(command.Pattern, universe)
	}

	return res, err
}

// withBox runs fn on the box of line and recomputes the boxes.
func (c *projectionController) withBox(line int, fn func(*Box) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(c.registry.Get(line)); err != nil {
		return err
	}

	return c.projectAllLocked(Projection{})
}

// withBoxes runs fn on every box and recomputes them.
func (c *projectionController) withBoxes(fn func(boxes []*Box) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Pad(c.editor.LineCount())

	if err := fn(c.registry.Boxes()); err != nil {
		return err
	}

	return c.projectAllLocked(Projection{})
}

func (c *projectionController) VarRemoveInBox(line int, pattern string) error {
	return c.withBox(line, func(b *Box) error { return b.VarRemove(pattern, nil) })
}

func (c *projectionController) VarRemoveInAllBoxes(pattern string) error {
	return c.varRemoveAll(pattern, nil)
}

func (c *projectionController) varRemoveAll(pattern string, changed *VarSet) error {
	return c.withBoxes(func(boxes []*Box) error {
		removed := NewVarSet()

		for _, b := range boxes {
			if err := b.VarRemove(pattern, removed); err != nil {
				return err
			}
		}

		for _, v := range removed.Slice() {
			c.global.Delete(v)
			changed.Add(v)
		}

		return nil
	})
}

func (c *projectionController) VarAddInBox(line int, pattern string) error {
	return c.withBox(line, func(b *Box) error { return b.VarAdd(pattern, nil) })
}

func (c *projectionController) VarAddInAllBoxes(pattern string) error {
	return c.varAddAll(pattern, nil)
}

func (c *projectionController) varAddAll(pattern string, changed *VarSet) error {
	return c.withBoxes(func(boxes []*Box) error {
		added := NewVarSet()

		for _, b := range boxes {
			if err := b.VarAdd(pattern, added); err != nil {
				return err
			}
		}

		for _, v := range added.Slice() {
			changed.Add(v)
		}

		if !c.settings.DisplayOnlyModifiedVars && (pattern == "*" || pattern == ".*") {
			c.global.Clear()
			return nil
		}

		for _, v := range added.Slice() {
			c.global.Add(v)
		}

		return nil
	})
}

func (c *projectionController) VarKeepOnlyInBox(line int, pattern string) error {
	return c.withBox(line, func(b *Box) error { return b.VarKeepOnly(pattern, nil, nil) })
}

func (c *projectionController) VarKeepOnlyInAllBoxes(pattern string) error {
	return c.varKeepOnlyAll(pattern, nil)
}

func (c *projectionController) varKeepOnlyAll(pattern string, changed *VarSet) error {
	return c.withBoxes(func(boxes []*Box) error {
		added, removed := NewVarSet(), NewVarSet()

		for _, b := range boxes {
			if err := b.VarKeepOnly(pattern, added, removed); err != nil {
				return err
			}
		}

		for _, v := range removed.Slice() {
			c.global.Delete(v)
			changed.Add(v)
		}

		for _, v := range added.Slice() {
			c.global.Add(v)
			changed.Add(v)
		}

		return nil
	})
}

func (c *projectionController) VarAddAllInBox(line int) {
	_ = c.withBox(line, func(b *Box) error {
		b.VarAddAll(nil)
		return nil
	})
}

func (c *projectionController) VarAddAllInAllBoxes() {
	_ = c.withBoxes(func(boxes []*Box) error {
		for _, b := range boxes {
			b.VarAddAll(nil)
		}

		return nil
	})
}

func (c *projectionController) HideBox(line int) {
	_ = c.withBox(line, func(b *Box) error {
		c.registry.SetHideNewBoxes(true)
		b.VarRemoveAll(nil)

		return nil
	})
}

func (c *projectionController) HideAllOtherBoxes(line int) {
	_ = c.withBoxes(func(boxes []*Box) error {
		c.registry.SetHideNewBoxes(true)

		for _, b := range boxes {
			if b.LineNumber() != line {
				b.VarRemoveAll(nil)
			}
		}

		return nil
	})
}

func (c *projectionController) RestoreBoxToDefault(line int) {
	_ = c.withBox(line, func(b *Box) error {
		b.VarRestoreToDefault()
		return nil
	})
}

func (c *projectionController) RestoreAllBoxesToDefault() {
	_ = c.withBoxes(func([]*Box) error {
		c.restoreAllLocked()
		return nil
	})
}

func (c *projectionController) restoreAllLocked() {
	c.registry.SetHideNewBoxes(false)
	c.global.Clear()

	for _, b := range c.registry.Boxes() {
		b.VarRestoreToDefault()
	}
}

func (c *projectionController) ShowBoxAtCursor() {
	_ = c.withBox(max(c.editor.Cursor().Line, 1), func(b *Box) error {
		b.VarMakeVisible()
		return nil
	})
}

func (c *projectionController) Focus() *LoopFocus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.focus
}

func (c *projectionController) FocusLoopAt(ctx context.Context, line int) error {
	return c.focusOnBox(ctx, c.GetBox(line))
}

// FocusWithSeed focuses the loop of the nearest seed above the cursor, or
// of the cursor line when there is none.
func (c *projectionController) FocusWithSeed(ctx context.Context) error {
	lines := c.editor.Lines()
	cursor := c.editor.Cursor().Line

	line := findSeed(lines, cursor)
	if line == 0 {
		line = max(cursor, 1)
	}

	return c.FocusLoopAt(ctx, line)
}

func (c *projectionController) focusOnBox(ctx context.Context, box *Box) error {
	c.mu.Lock()
	if c.focus != nil {
		c.focus.destroyDecorations(c.editor)
	}

	c.focus = newLoopFocus(box, box.FirstLoopIter())
	edit := c.resetFocusLocked(true)
	c.mu.Unlock()

	c.logger.Debug("loop focused", "line", box.LineNumber(), "iter", box.FirstLoopIter())

	c.applyFocusEdit(edit)
	c.ChangeViewMode(m.ViewFocused)

	return c.rerun(ctx)
}

// ScrollLoopFocus moves the focus delta iterations within the controlling
// box, wrapping around.
func (c *projectionController) ScrollLoopFocus(_ context.Context, delta int) error {
	c.mu.Lock()
	if c.focus == nil {
		c.mu.Unlock()
		return nil
	}

	box := c.focus.box

	next, err := box.NextLoopIter(box.LoopID(), c.focus.iter, delta)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("scroll loop focus: %w", err)
	}

	c.focus.destroyDecorations(c.editor)
	c.focus = newLoopFocus(box, next)
	edit := c.resetFocusLocked(true)

	perr := c.projectAllLocked(Projection{})
	c.mu.Unlock()

	c.applyFocusEdit(edit)

	return perr
}

func (c *projectionController) StopFocus(ctx context.Context) error {
	c.mu.Lock()
	if c.focus != nil {
		c.focus.destroyDecorations(c.editor)
		c.focus = nil
	}
	c.mu.Unlock()

	c.ChangeViewMode(m.ViewFull)

	return c.rerun(ctx)
}

// rerun updates the boxes without an edit; a disabled controller skips it.
func (c *projectionController) rerun(ctx context.Context) error {
	_, err := c.UpdateBoxes(ctx, nil)
	if errors.Is(err, ErrDisabled) || errors.Is(err, ErrCancelled) {
		return nil
	}

	return err
}

func (c *projectionController) resetFocusLocked(addEnd bool) *focusEdit {
	if c.focus == nil {
		return nil
	}

	return c.focus.resetDecorations(c.editor, c.editor.Lines(), addEnd)
}

// applyFocusEdit inserts the end-of-loop marker. It must run without the
// lock since the editor notifies the controller synchronously.
func (c *projectionController) applyFocusEdit(edit *focusEdit) {
	if edit == nil {
		return
	}

	if err := c.editor.ApplyEdits([]m.Change{edit.change}); err != nil {
		c.logger.Warn("insert loop end marker", "error", err)
	}
}

func (c *projectionController) ChangedLines() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.changed)
}

func (c *projectionController) ResetChangedLines() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.changed = nil
}

func (c *projectionController) ErrorAnnotation() (m.Decoration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorDeco == nil {
		return m.Decoration{}, false
	}

	return *c.errorDeco, true
}

// showErrorLocked annotates the error of a failed run once the error
// delay passed without a newer annotation or a successful run.
func (c *projectionController) showErrorLocked(stderr string) {
	ticket := c.errDelayer.Schedule(c.errorDelay)

	c.bg.Add(1)

	go func() {
		defer c.bg.Done()

		if err := ticket.Wait(c.ctx); err != nil {
			return
		}

		lines := c.editor.Lines()

		c.mu.Lock()
		defer c.mu.Unlock()

		c.removeErrorLocked()

		deco, ok := ErrorDecoration(stderr, lines)
		if !ok {
			c.logger.Debug("unrecognized error output", "stderr", stderr)
			return
		}

		c.errorID = c.editor.AddDecoration(deco)
		c.errorDeco = &deco
	}()
}

func (c *projectionController) clearErrorLocked() {
	c.errDelayer.Cancel()
	c.removeErrorLocked()
}

func (c *projectionController) removeErrorLocked() {
	if c.errorDeco == nil {
		return
	}

	c.editor.RemoveDecoration(c.errorID)
	c.errorID = ""
	c.errorDeco = nil
}

// StartSynthesis opens a synthesis session on line, closing the one that
// is open.
func (c *projectionController) StartSynthesis(ctx context.Context, line int) (*SynthesisSession, error) {
	if !c.Settings().SupportSynthesis {
		return nil, fmt.Errorf("synthesis is turned off: %w", ErrDisabled)
	}

	c.mu.Lock()
	prev := c.session
	c.session = nil
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel(ctx)
	}

	s := newSynthesisSession(c, line)

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if err := s.start(ctx); err != nil {
		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()

		return s, err
	}

	return s, nil
}

func (c *projectionController) Synthesis() *SynthesisSession {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	// session edits lock the session before the controller
	if s == nil || !s.Active() {
		return nil
	}

	return s
}

func (c *projectionController) endSession(s *SynthesisSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == s {
		c.session = nil
	}
}

func (c *projectionController) Wait() {
	c.bg.Wait()
}

func (c *projectionController) Close() {
	c.cancel()
	c.scheduler.CancelPending()

	for _, fn := range c.unsubs {
		fn()
	}

	c.bg.Wait()
}

// isHoleLine reports a line asking for synthesis: "x = ??" or
// "return ??", optionally with an expression before the marker.
func isHoleLine(text string) bool {
	t := strings.TrimSpace(text)
	if !strings.HasSuffix(t, "??") {
		return false
	}

	return strings.HasPrefix(t, "return ") || strings.Count(t, "=") == 1
}
