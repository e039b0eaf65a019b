package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mouse-blink/pbox/internal/domain/trace"
	m "github.com/mouse-blink/pbox/internal/model"
)

const (
	msgBadHole       = "Invalid input format. Must be of the form <varname> = ??"
	msgRunFailed     = "Error: Failed to run program."
	msgNothingToTake = "No program available to accept. Please use ESC to exit synthesis."
	msgNotEditable   = "this row cannot be edited"
)

// SessionPhase is the step a synthesis session is in.
type SessionPhase int

const (
	PhaseIdle SessionPhase = iota
	PhaseAwaitingDefault
	PhaseEditing
	PhaseSynthesizing
	PhaseFailed
)

func (p SessionPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingDefault:
		return "awaiting default"
	case PhaseEditing:
		return "editing"
	case PhaseSynthesizing:
		return "synthesizing"
	case PhaseFailed:
		return "failed"
	}

	return "unknown"
}

// EditorState is what currently occupies the target line.
type EditorState int

const (
	StateHasProgram EditorState = iota
	StateSynthesizing
	StateFailed
)

// ErrorKind tells whether a session error ends the session.
type ErrorKind int

const (
	ErrorTransient ErrorKind = iota
	ErrorFatal
)

// SessionError is a failure reported to the user during synthesis. Row
// is -1 when the error is not tied to a cell.
type SessionError struct {
	Kind    ErrorKind
	Row     int
	Var     string
	Message string
}

func (e *SessionError) Error() string {
	if e.Row < 0 {
		return e.Message
	}

	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Var, e.Message)
}

// SynthesisSession collects examples for one `<var> = ??` line and asks the
// synthesizer for a fragment satisfying them. The controller stays
// disabled while the session is active.
type SynthesisSession struct {
	c    *projectionController
	line int

	mu       sync.Mutex
	active   bool
	phase    SessionPhase
	state    EditorState
	lhs      string
	outVar   string
	model    *exampleModel
	fragment string
	errs     []SessionError
}

func newSynthesisSession(c *projectionController, line int) *SynthesisSession {
	return &SynthesisSession{c: c, line: line, active: true, state: StateHasProgram, model: newExampleModel(line, nil, nil)}
}

// Line returns the target line.
func (s *SynthesisSession) Line() int { return s.line }

// OutVar returns the variable being synthesized.
func (s *SynthesisSession) OutVar() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outVar
}

func (s *SynthesisSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

func (s *SynthesisSession) Phase() SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

func (s *SynthesisSession) State() EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Fragment returns the last fragment written to the target line.
func (s *SynthesisSession) Fragment() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fragment
}

// Table returns a copy of the example table.
func (s *SynthesisSession) Table() *m.Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.table == nil {
		return nil
	}

	t := *s.model.table
	t.Columns = append([]m.Column(nil), t.Columns...)
	t.Rows = make([]m.Row, len(s.model.table.Rows))

	for i, r := range s.model.table.Rows {
		r.Cells = append([]m.Cell(nil), r.Cells...)
		t.Rows[i] = r
	}

	return &t
}

// DrainErrors returns the errors reported since the last call.
func (s *SynthesisSession) DrainErrors() []SessionError {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := s.errs
	s.errs = nil

	return errs
}

// NextCell returns the editable output cell after (row, name).
func (s *SynthesisSession) NextCell(row int, name string, backwards, skipLine bool) (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.model.nextCell(row, name, backwards, skipLine)
}

func (s *SynthesisSession) report(e *SessionError) *SessionError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs = append(s.errs, *e)

	return e
}

func (s *SynthesisSession) fail(kind ErrorKind, row int, name, msg string) *SessionError {
	return s.report(&SessionError{Kind: kind, Row: row, Var: name, Message: msg})
}

// start writes the default value into the target line, runs it and
// builds the example table. Any failure ends the session.
func (s *SynthesisSession) start(ctx context.Context) error {
	lhs, rhs, ok := splitHole(s.c.editor.Line(s.line))
	if !ok {
		err := s.fail(ErrorFatal, -1, "", msgBadHole)
		s.Cancel(ctx)

		return err
	}

	outVar := m.KeyReturn
	if lhs != m.KeyReturn {
		targets, err := s.c.validator.AssignTargets(lhs)
		if err != nil || len(targets) != 1 {
			ferr := s.fail(ErrorFatal, -1, "", msgBadHole)
			s.Cancel(ctx)

			return ferr
		}

		outVar = targets[0]
	}

	s.mu.Lock()
	s.lhs, s.outVar, s.phase = lhs, outVar, PhaseAwaitingDefault
	s.mu.Unlock()

	s.c.ChangeViewMode(m.ViewStealth)
	s.c.logger.Info("synthesis started", "line", s.line, "var", outVar)

	def := s.defaultValue(strings.TrimSpace(strings.TrimSuffix(rhs, "??")), outVar)

	text := lhs + " = " + def
	if lhs == m.KeyReturn {
		text = "return " + def
	}

	// edits made by the session must not start runs of their own
	s.c.Disable()

	if err := s.replaceLine(text); err != nil {
		s.Cancel(ctx)
		return err
	}

	exec, err := s.c.forceUpdate(ctx)
	if err != nil || exec.ExitCode != 0 {
		s.Cancel(ctx)

		if err == nil {
			err = s.fail(ErrorFatal, -1, "", "the default value "+def+" does not run")
		}

		return err
	}

	box := s.c.GetBox(s.line)

	s.mu.Lock()
	s.model = newExampleModel(s.line, []string{outVar}, box.AllVars())
	s.model.updateAllEnvs(*exec)
	s.mu.Unlock()

	if err := s.rerun(ctx, true); err != nil {
		s.report(&SessionError{Kind: ErrorFatal, Row: -1, Message: err.Error()})
		s.Cancel(ctx)

		return err
	}

	s.mu.Lock()
	empty := len(s.model.envs) == 0
	s.mu.Unlock()

	if empty {
		s.Cancel(ctx)
		return s.fail(ErrorFatal, -1, "", fmt.Sprintf("no examples to edit on line %d", s.line))
	}

	if !s.c.synth.Connected() {
		s.fail(ErrorFatal, -1, "", ErrSynthDisconnected.Error())
		s.Cancel(ctx)

		return fmt.Errorf("line %d: %w", s.line, ErrSynthDisconnected)
	}

	s.mu.Lock()
	s.phase = PhaseEditing
	s.mu.Unlock()

	return nil
}

// splitHole parses "<lhs> = <expr> ??" and "return <expr> ??".
func splitHole(text string) (lhs, rhs string, ok bool) {
	t := strings.TrimSpace(text)

	if rest, found := strings.CutPrefix(t, "return "); found && !strings.Contains(t, "=") {
		lhs, rhs = m.KeyReturn, strings.TrimSpace(rest)
	} else {
		parts := strings.Split(t, "=")
		if len(parts) != 2 {
			return "", "", false
		}

		lhs, rhs = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	if lhs == "" || !strings.HasSuffix(rhs, "??") {
		return "", "", false
	}

	return lhs, rhs, true
}

// defaultValue picks the expression written while examples are collected:
// the user's expression, else the variable itself when it was bound just
// before the line ran, else 0.
func (s *SynthesisSession) defaultValue(expr, name string) string {
	if expr != "" {
		return expr
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.c.index == nil {
		return "0"
	}

	earliest, found := minTime(s.c.registry.Get(s.line).Envs())
	if found {
		earliest--
	} else if s.line > 1 {
		earliest, found = minTime(s.c.registry.Get(s.line - 1).Envs())
	}

	if !found {
		return "0"
	}

	if env, ok := s.c.index.ByTime()[earliest]; ok && env.Has(name) {
		return name
	}

	return "0"
}

func minTime(envs []m.Env) (int, bool) {
	best, found := 0, false

	for _, e := range envs {
		if e.HasTime && (!found || e.Time < best) {
			best, found = e.Time, true
		}
	}

	return best, found
}

// rerun runs the program with the included examples injected and
// refreshes the example environments.
func (s *SynthesisSession) rerun(ctx context.Context, updateTable bool) error {
	s.mu.Lock()
	values := s.model.values()
	s.mu.Unlock()

	res, err := s.c.scheduler.Run(ctx, m.RunRequest{Program: s.c.Program(), Dir: s.c.dir, Values: values})
	if err != nil {
		return err
	}

	if msg := lastLine(res.Stderr); msg != "" {
		return errors.New(msg)
	}

	if !res.Usable() || len(res.Output) == 0 {
		return errors.New(msgRunFailed)
	}

	exec, err := trace.Parse(res.Output)
	if err != nil {
		return fmt.Errorf("read trace: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.model.updateAllEnvs(exec)

	if !updateTable {
		return nil
	}

	if err := s.model.updateBoxContent(exec); err != nil {
		return err
	}

	for i := range s.model.envs {
		s.model.removeInvalidTimes(i, s.model.editable(i))
	}

	return nil
}

func lastLine(stderr string) string {
	lines := strings.FieldsFunc(stderr, func(r rune) bool { return r == '\n' })
	if len(lines) == 0 {
		return ""
	}

	return lines[len(lines)-1]
}

// SetCell writes value into an output cell and includes its row. An
// unchanged value is a no-op.
func (s *SynthesisSession) SetCell(ctx context.Context, row int, name, value string) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNoSession
	}

	changed := s.model.cellChanged(row, name, value)
	editable := s.model.editable(row)
	s.mu.Unlock()

	if !changed {
		return nil
	}

	if !editable {
		return s.fail(ErrorTransient, row, name, msgNotEditable)
	}

	on := true

	return s.toggle(ctx, row, name, value, &on)
}

// ToggleRow includes or excludes a row. force picks the direction when
// set.
func (s *SynthesisSession) ToggleRow(ctx context.Context, row int, force *bool) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNoSession
	}

	name := s.outVar
	e, err := s.model.row(row)

	var (
		value     string
		blocked bool
	)

	if err == nil {
		value, _ = e.Lookup(name)
		blocked = s.model.toggleOn(row, force) && !s.model.editable(row)
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail(ErrorTransient, row, name, err.Error())
	}

	// unreachable rows may be excluded but never included
	if blocked {
		return s.fail(ErrorTransient, row, name, msgNotEditable)
	}

	return s.toggle(ctx, row, name, value, force)
}

func (s *SynthesisSession) toggle(ctx context.Context, row int, name, value string, force *bool) error {
	s.mu.Lock()
	on := s.model.toggleOn(row, force)
	s.mu.Unlock()

	if !on {
		s.mu.Lock()
		s.model.include(row, false)
		s.mu.Unlock()

		if err := s.rerun(ctx, true); err != nil {
			s.mu.Lock()
			s.model.include(row, true)
			s.mu.Unlock()

			return s.fail(ErrorTransient, row, name, err.Error())
		}

		return nil
	}

	if _, err := s.c.validator.Validate(ctx, value); err != nil {
		return s.fail(ErrorTransient, row, name, err.Error())
	}

	s.mu.Lock()
	s.model.setValue(row, name, strings.TrimSpace(value))
	s.model.include(row, true)
	s.mu.Unlock()

	if err := s.rerun(ctx, true); err != nil {
		return s.fail(ErrorTransient, row, name, err.Error())
	}

	return nil
}

// Submit asks the synthesizer for a fragment satisfying the included
// examples. It reports whether a fragment was written.
func (s *SynthesisSession) Submit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, ErrNoSession
	}

	envs, optEnvs := s.model.partition()
	problem := m.SynthProblem{
		VarNames:     []string{s.outVar},
		PreviousEnvs: s.model.previous(),
		Envs:         envs,
		OptEnvs:      optEnvs,
	}
	s.phase = PhaseSynthesizing
	s.setStateLocked(StateSynthesizing, "")
	s.mu.Unlock()

	s.c.logger.Debug("synthesis submitted", "line", s.line, "examples", len(envs), "optional", len(optEnvs))

	res, err := s.c.synth.Synthesize(ctx, problem)

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, ErrCancelled
	}

	if err != nil {
		s.phase = PhaseFailed
		s.setStateLocked(StateFailed, "")
		s.mu.Unlock()

		return false, fmt.Errorf("synthesize line %d: %w", s.line, err)
	}

	if res == nil {
		s.phase = PhaseEditing
		s.mu.Unlock()

		return false, nil
	}

	if !res.Success {
		s.phase = PhaseFailed
		s.setStateLocked(StateFailed, "")
		s.mu.Unlock()

		if res.Result != "" {
			return false, s.fail(ErrorTransient, -1, "", res.Result)
		}

		return false, nil
	}

	s.phase = PhaseEditing
	s.setStateLocked(StateHasProgram, res.Result)
	s.mu.Unlock()

	s.c.logger.Info("fragment synthesized", "line", s.line, "fragment", res.Result)

	if err := s.rerun(ctx, true); err != nil {
		return true, s.fail(ErrorTransient, -1, "", err.Error())
	}

	return true, nil
}

// setStateLocked writes the text matching state into the target line.
// Synthesizing and Failed are written once per entry.
func (s *SynthesisSession) setStateLocked(state EditorState, fragment string) {
	prefix := s.lhs + " = "
	if s.lhs == m.KeyReturn {
		prefix = "return "
	}

	var text string

	switch state {
	case StateSynthesizing, StateFailed:
		if s.state == state {
			return
		}

		text = prefix + "..."
		if state == StateFailed {
			text = prefix + "'🤯'"
		}
	case StateHasProgram:
		if rest, ok := strings.CutPrefix(fragment, m.KeyReturn+" = "); ok {
			fragment = "return " + rest
		}

		s.fragment = fragment
		text = fragment
	}

	s.state = state

	if err := s.insertFragment(text); err != nil {
		s.c.logger.Warn("write synthesis state", "line", s.line, "error", err)
	}
}

// insertFragment replaces the statement on the target line, or inserts
// at the cursor when the line is blank. Continuation lines are indented
// to the start column.
func (s *SynthesisSession) insertFragment(fragment string) error {
	ed := s.c.editor
	text := ed.Line(s.line)
	cursor := ed.Cursor()

	var start, end int

	if strings.TrimSpace(text) == "" && cursor.Line == s.line {
		start, end = cursor.Column, cursor.Column
	} else {
		start, end = firstNonWhitespaceCol(text), ed.LineMaxColumn(s.line)
		if start == 0 {
			start = end
		}
	}

	if strings.Contains(fragment, "\n") {
		fragment = strings.ReplaceAll(fragment, "\n", "\n"+strings.Repeat(" ", start-1))
	}

	ed.PushUndoStop()

	return ed.ApplyEdits([]m.Change{{
		Range: m.Range{Start: m.Position{Line: s.line, Column: start}, End: m.Position{Line: s.line, Column: end}},
		Text:  fragment,
	}})
}

func (s *SynthesisSession) replaceLine(text string) error {
	ed := s.c.editor
	line := ed.Line(s.line)

	start := firstNonWhitespaceCol(line)
	if start == 0 {
		start = 1
	}

	return ed.ApplyEdits([]m.Change{{
		Range: m.Range{Start: m.Position{Line: s.line, Column: start}, End: m.Position{Line: s.line, Column: ed.LineMaxColumn(s.line)}},
		Text:  text,
	}})
}

// Accept ends the session keeping the synthesized fragment. Without one
// the session stays open and an error is reported.
func (s *SynthesisSession) Accept(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNoSession
	}

	hasProgram := s.state == StateHasProgram
	s.mu.Unlock()

	if !hasProgram {
		return s.fail(ErrorTransient, -1, "", msgNothingToTake)
	}

	s.Cancel(ctx)

	return nil
}

// Cancel ends the session, leaving the target line as it is, and brings
// the controller back to the Full view.
func (s *SynthesisSession) Cancel(ctx context.Context) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	s.active = false
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.c.synth.Stop()
	s.c.endSession(s)
	s.c.logger.Info("synthesis ended", "line", s.line)

	s.c.Enable()
	s.c.ResetChangedLines()

	if err := s.c.rerun(ctx); err != nil {
		s.c.logger.Warn("update boxes after synthesis", "error", err)
	}

	s.c.ChangeViewMode(m.ViewFull)
}
