package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

type watchKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	ViewMode   key.Binding
	FullCursor key.Binding
	ModVars    key.Binding
	Slower     key.Binding
	Faster     key.Binding
	Command    key.Binding
	Hide       key.Binding
	HideOthers key.Binding
	Restore    key.Binding
	RestoreAll key.Binding
	Focus      key.Binding
	FocusSeed  key.Binding
	PrevIter   key.Binding
	NextIter   key.Binding
	Escape     key.Binding
	Synth      key.Binding
	Copy       key.Binding
	Save       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		ViewMode:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view mode")),
		FullCursor: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "full/cursor")),
		ModVars:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "modified vars")),
		Slower:     key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "slower updates")),
		Faster:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "faster updates")),
		Command:    key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "var command")),
		Hide:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide box")),
		HideOthers: key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "hide others")),
		Restore:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore box")),
		RestoreAll: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "restore all")),
		Focus:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus loop")),
		FocusSeed:  key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "focus #@")),
		PrevIter:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev iteration")),
		NextIter:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next iteration")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop focus")),
		Synth:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "synthesize ??")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy box")),
		Save:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.ViewMode, k.Command, k.Focus, k.Synth, k.Help, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.ViewMode, k.FullCursor, k.ModVars, k.Slower, k.Faster},
		{k.Command, k.Hide, k.HideOthers, k.Restore, k.RestoreAll, k.Copy},
		{k.Focus, k.FocusSeed, k.PrevIter, k.NextIter, k.Escape},
		{k.Synth, k.Save, k.Help, k.Quit},
	}
}

type synthKeyMap struct {
	NextCell key.Binding
	PrevCell key.Binding
	Edit     key.Binding
	Toggle   key.Binding
	Submit   key.Binding
	Accept   key.Binding
	Cancel   key.Binding
}

func newSynthKeyMap() synthKeyMap {
	return synthKeyMap{
		NextCell: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next cell")),
		PrevCell: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev cell")),
		Edit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "include row")),
		Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "synthesize")),
		Accept:   key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "accept")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k synthKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextCell, k.PrevCell, k.Edit, k.Toggle, k.Submit, k.Accept, k.Cancel}
}

func (k synthKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type inputKind int

const (
	inputNone inputKind = iota
	inputVarCommand
	inputCell
)

// watchModel shows the buffer with its boxes and drives the controller.
type watchModel struct {
	watch     Watch
	settings  m.Settings
	keys      watchKeyMap
	synthKeys synthKeyMap
	help      help.Model
	spinner   spinner.Model
	input     textinput.Model
	inputKind inputKind

	width  int
	height int
	top    int

	view    BoxView
	cursor  int
	running bool
	status  string

	session *domain.SynthesisSession
	cellRow int
	cellVar string
}

func newWatchModel(w Watch, settings m.Settings) watchModel {
	input := textinput.New()
	input.Prompt = ": "

	wm := watchModel{
		watch:     w,
		settings:  settings,
		keys:      newWatchKeyMap(),
		synthKeys: newSynthKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:     input,
		width:     80,
		height:    24,
		cursor:    max(w.Buffer.Cursor().Line, 1),
	}

	return wm.refresh()
}

func (wm watchModel) Init() tea.Cmd {
	return wm.spinner.Tick
}

// do runs fn off the UI loop and reports back with an actionMsg.
func (wm watchModel) do(status string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{status: status, err: fn(context.Background())}
	}
}

func (wm watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		wm.width = msg.Width
		wm.height = msg.Height
		wm.help.Width = msg.Width

		return wm.scrollToCursor(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd

		wm.spinner, cmd = wm.spinner.Update(msg)

		return wm, cmd

	case updateMsg:
		wm.running = msg.event.IsStart()
		if msg.event.Phase == m.UpdateFinish {
			wm.view = msg.view
		}

		return wm.refresh(), nil

	case actionMsg:
		return wm.handleAction(msg), nil

	case synthStartedMsg:
		return wm.handleSynthStarted(msg), nil

	case synthReportMsg:
		wm.status = fmt.Sprintf("line %d: %s", msg.report.Line, msg.report.Text)
		return wm, nil

	case tea.KeyMsg:
		if wm.inputKind != inputNone {
			return wm.handleInputKey(msg)
		}

		if wm.synthesizing() {
			if next, cmd, ok := wm.handleSynthKey(msg); ok {
				return next, cmd
			}
		}

		return wm.handleKey(msg)
	}

	return wm, nil
}

func (wm watchModel) synthesizing() bool {
	return wm.session != nil && wm.session.Active()
}

func (wm watchModel) handleAction(msg actionMsg) watchModel {
	switch {
	case errors.Is(msg.err, domain.ErrCancelled):
	case msg.err != nil:
		wm.status = "error: " + msg.err.Error()
	case msg.status != "":
		wm.status = msg.status
	}

	if wm.session != nil {
		for _, serr := range wm.session.DrainErrors() {
			wm.status = serr.Error()
		}

		if !wm.session.Active() {
			wm.session = nil
		}
	}

	return wm.refresh()
}

func (wm watchModel) handleSynthStarted(msg synthStartedMsg) watchModel {
	if msg.err != nil {
		wm.status = "synthesis: " + msg.err.Error()
		return wm.refresh()
	}

	wm.session = msg.session
	wm.cellRow, wm.cellVar = msg.session.NextCell(0, msg.session.OutVar(), false, false)
	wm.status = "synthesis started at line " + fmt.Sprint(msg.session.Line())

	return wm.refresh()
}

func (wm watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := wm.watch.Controller

	switch {
	case key.Matches(msg, wm.keys.Quit):
		return wm, tea.Quit
	case key.Matches(msg, wm.keys.Up):
		return wm.moveCursor(-1), nil
	case key.Matches(msg, wm.keys.Down):
		return wm.moveCursor(1), nil
	case key.Matches(msg, wm.keys.ViewMode):
		ctrl.FlipViewModes()
		wm.status = "view mode: " + string(ctrl.ViewMode())
	case key.Matches(msg, wm.keys.FullCursor):
		ctrl.FlipFullAndCursor()
		wm.status = "view mode: " + string(ctrl.ViewMode())
	case key.Matches(msg, wm.keys.ModVars):
		ctrl.FlipModVars()
	case key.Matches(msg, wm.keys.Slower):
		ctrl.IncreaseDelay()
		wm.status = fmt.Sprintf("update delay: %dms", ctrl.Settings().UpdateDelayMS)
	case key.Matches(msg, wm.keys.Faster):
		ctrl.DecreaseDelay()
		wm.status = fmt.Sprintf("update delay: %dms", ctrl.Settings().UpdateDelayMS)
	case key.Matches(msg, wm.keys.Command):
		return wm.openInput(inputVarCommand, "")
	case key.Matches(msg, wm.keys.Hide):
		ctrl.HideBox(wm.cursor)
	case key.Matches(msg, wm.keys.HideOthers):
		ctrl.HideAllOtherBoxes(wm.cursor)
	case key.Matches(msg, wm.keys.Restore):
		ctrl.RestoreBoxToDefault(wm.cursor)
	case key.Matches(msg, wm.keys.RestoreAll):
		ctrl.RestoreAllBoxesToDefault()
	case key.Matches(msg, wm.keys.Focus):
		line := wm.cursor
		return wm, wm.do("", func(ctx context.Context) error { return ctrl.FocusLoopAt(ctx, line) })
	case key.Matches(msg, wm.keys.FocusSeed):
		return wm, wm.do("", ctrl.FocusWithSeed)
	case key.Matches(msg, wm.keys.PrevIter):
		return wm, wm.do("", func(ctx context.Context) error { return ctrl.ScrollLoopFocus(ctx, -1) })
	case key.Matches(msg, wm.keys.NextIter):
		return wm, wm.do("", func(ctx context.Context) error { return ctrl.ScrollLoopFocus(ctx, 1) })
	case key.Matches(msg, wm.keys.Escape):
		if ctrl.Focus() != nil {
			return wm, wm.do("focus stopped", ctrl.StopFocus)
		}
	case key.Matches(msg, wm.keys.Synth):
		line := wm.cursor

		return wm, func() tea.Msg {
			s, err := ctrl.StartSynthesis(context.Background(), line)
			return synthStartedMsg{session: s, err: err}
		}
	case key.Matches(msg, wm.keys.Copy):
		wm.status = wm.copyBox()
	case key.Matches(msg, wm.keys.Save):
		wm.status = wm.save()
	case key.Matches(msg, wm.keys.Help):
		wm.help.ShowAll = !wm.help.ShowAll
	default:
		return wm, nil
	}

	return wm.refresh(), nil
}

func (wm watchModel) handleSynthKey(msg tea.KeyMsg) (watchModel, tea.Cmd, bool) {
	s := wm.session

	switch {
	case key.Matches(msg, wm.synthKeys.NextCell):
		wm.cellRow, wm.cellVar = s.NextCell(wm.cellRow, wm.cellVar, false, false)
	case key.Matches(msg, wm.synthKeys.PrevCell):
		wm.cellRow, wm.cellVar = s.NextCell(wm.cellRow, wm.cellVar, true, false)
	case key.Matches(msg, wm.synthKeys.Edit):
		next, cmd := wm.openInput(inputCell, wm.cellValue())
		return next.(watchModel), cmd, true
	case key.Matches(msg, wm.synthKeys.Toggle):
		row := wm.cellRow
		return wm, wm.do("", func(ctx context.Context) error { return s.ToggleRow(ctx, row, nil) }), true
	case key.Matches(msg, wm.synthKeys.Submit):
		return wm, wm.do("", func(ctx context.Context) error {
			ok, err := s.Submit(ctx)
			if err == nil && !ok && s.Phase() == domain.PhaseFailed {
				return errors.New("synthesis failed")
			}

			return err
		}), true
	case key.Matches(msg, wm.synthKeys.Accept):
		return wm, wm.do("synthesized code accepted", s.Accept), true
	case key.Matches(msg, wm.synthKeys.Cancel):
		return wm, wm.do("synthesis cancelled", func(ctx context.Context) error {
			s.Cancel(ctx)
			return nil
		}), true
	default:
		return wm, nil, false
	}

	return wm, nil, true
}

func (wm watchModel) openInput(kind inputKind, value string) (tea.Model, tea.Cmd) {
	wm.inputKind = kind
	wm.input.SetValue(value)
	wm.input.CursorEnd()

	if kind == inputCell {
		wm.input.Prompt = wm.cellVar + " = "
	} else {
		wm.input.Prompt = ": "
	}

	return wm, wm.input.Focus()
}

func (wm watchModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		wm.inputKind = inputNone
		wm.input.Blur()

		return wm, nil
	case tea.KeyEnter:
		kind, value := wm.inputKind, wm.input.Value()
		wm.inputKind = inputNone
		wm.input.Blur()

		return wm.submitInput(kind, value)
	}

	var cmd tea.Cmd

	wm.input, cmd = wm.input.Update(msg)

	return wm, cmd
}

func (wm watchModel) submitInput(kind inputKind, value string) (tea.Model, tea.Cmd) {
	if kind == inputCell && wm.session != nil {
		s, row, name := wm.session, wm.cellRow, wm.cellVar
		return wm, wm.do("", func(ctx context.Context) error { return s.SetCell(ctx, row, name, value) })
	}

	res, err := wm.watch.Controller.RunVarCommand(value)

	switch {
	case err != nil:
		wm.status = "error: " + err.Error()
	case len(res.Suggestions) > 0:
		wm.status = "did you mean: " + strings.Join(res.Suggestions, ", ")
	default:
		wm.status = res.Command.String()
	}

	return wm.refresh(), nil
}

func (wm watchModel) cellValue() string {
	table := wm.session.Table()
	if table == nil || wm.cellRow < 0 || wm.cellRow >= len(table.Rows) {
		return ""
	}

	for _, c := range table.Rows[wm.cellRow].Cells {
		if c.Editable && c.Var == wm.cellVar {
			return c.Value
		}
	}

	return ""
}

func (wm watchModel) moveCursor(delta int) watchModel {
	wm.cursor = min(max(wm.cursor+delta, 1), max(len(wm.view.Lines), 1))
	wm.watch.Buffer.SetCursor(m.Position{Line: wm.cursor, Column: 1})

	return wm.refresh()
}

func (wm watchModel) copyBox() string {
	for _, t := range wm.view.Tables {
		if t.Line == wm.cursor {
			if err := writeClipboard(TableString(t, wm.settings)); err != nil {
				return fmt.Sprintf("copy failed: %v", err)
			}

			return fmt.Sprintf("box at line %d copied", t.Line)
		}
	}

	return "no box on this line"
}

func (wm watchModel) save() string {
	if wm.watch.Save == nil {
		return "saving is disabled"
	}

	if err := wm.watch.Save(); err != nil {
		return "save failed: " + err.Error()
	}

	return "saved " + string(wm.watch.Source)
}

// refresh reads the current boxes back from the controller.
func (wm watchModel) refresh() watchModel {
	ctrl := wm.watch.Controller

	wm.view = NewBoxView(wm.watch.Buffer.Lines(), ctrl)
	wm.settings = ctrl.Settings()
	wm.cursor = min(max(wm.cursor, 1), max(len(wm.view.Lines), 1))

	if wm.session == nil {
		wm.session = ctrl.Synthesis()
	}

	return wm.scrollToCursor()
}

func (wm watchModel) bodyHeight() int {
	used := 3
	if wm.synthesizing() {
		used += lipgloss.Height(wm.renderSynthesis())
	}

	if wm.inputKind != inputNone {
		used++
	}

	if wm.help.ShowAll {
		used += 4
	}

	return max(wm.height-used, 3)
}

func (wm watchModel) scrollToCursor() watchModel {
	rows, cursorRow := wm.bodyRows()
	height := wm.bodyHeight()

	if cursorRow < wm.top {
		wm.top = cursorRow
	}

	if cursorRow >= wm.top+height {
		wm.top = cursorRow - height + 1
	}

	wm.top = max(min(wm.top, len(rows)-height), 0)

	return wm
}

// bodyRows lays out the source lines with their boxes underneath and
// returns the index of the cursor row.
func (wm watchModel) bodyRows() ([]string, int) {
	tables := make(map[int]*m.Table, len(wm.view.Tables))
	for _, t := range wm.view.Tables {
		tables[t.Line] = t
	}

	digits := len(fmt.Sprint(len(wm.view.Lines)))
	numberStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle := lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	boxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	rows := make([]string, 0, len(wm.view.Lines))
	cursorRow := 0

	for i, line := range wm.view.Lines {
		n := i + 1
		text := line

		if n == wm.cursor {
			cursorRow = len(rows)
			text = cursorStyle.Render(line)
		}

		if wm.view.Error != nil && wm.view.Error.Range.Start.Line == n {
			text += errorStyle.Render("  ✗ " + wm.view.Error.Message)
		}

		rows = append(rows, numberStyle.Render(fmt.Sprintf("%*d│ ", digits, n))+text)

		t, ok := tables[n]
		if !ok {
			continue
		}

		indent := strings.Repeat(" ", digits+2+len(line)-len(strings.TrimLeft(line, " \t")))
		for _, boxLine := range strings.Split(TableString(t, wm.settings), "\n") {
			rows = append(rows, boxStyle.Render(indent+boxLine))
		}
	}

	return rows, cursorRow
}

func (wm watchModel) renderSynthesis() string {
	s := wm.session
	table := s.Table()

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).
		Render(fmt.Sprintf("synthesis at line %d • %s", s.Line(), s.Phase()))

	lines := []string{header}

	if table != nil {
		cols := make([]string, 0, len(table.Columns)+1)
		cols = append(cols, "   ")

		for _, c := range table.Columns {
			cols = append(cols, fmt.Sprintf("%-10s", c.Header()))
		}

		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(strings.Join(cols, " ")))

		selected := lipgloss.NewStyle().Reverse(true)
		editable := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		fixed := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

		for i, row := range table.Rows {
			mark := "[ ]"
			if row.Included {
				mark = "[x]"
			}

			cells := []string{mark}

			for _, c := range row.Cells {
				text := fmt.Sprintf("%-10s", c.Value)

				switch {
				case i == wm.cellRow && c.Editable && c.Var == wm.cellVar:
					text = selected.Render(text)
				case c.Editable:
					text = editable.Render(text)
				default:
					text = fixed.Render(text)
				}

				cells = append(cells, text)
			}

			lines = append(lines, strings.Join(cells, " "))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (wm watchModel) View() string {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	state := " "
	if wm.running {
		state = wm.spinner.View()
	}

	title := fmt.Sprintf("%s %s  %s  delay %s",
		state,
		titleStyle.Render(string(wm.watch.Source)),
		accentStyle.Render(string(wm.view.Mode)),
		accentStyle.Render(fmt.Sprintf("%dms", wm.settings.UpdateDelayMS)),
	)

	if focus := wm.watch.Controller.Focus(); focus != nil {
		title += "  " + accentStyle.Render(fmt.Sprintf("focus line %d #%s", focus.Box().LineNumber(), focus.Iter()))
	}

	rows, _ := wm.bodyRows()
	end := min(wm.top+wm.bodyHeight(), len(rows))

	var visible []string
	if wm.top < end {
		visible = rows[wm.top:end]
	}

	parts := []string{title, strings.Join(visible, "\n")}

	if wm.synthesizing() {
		parts = append(parts, wm.renderSynthesis())
	}

	if wm.inputKind != inputNone {
		parts = append(parts, wm.input.View())
	}

	parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render(wm.status))

	if wm.synthesizing() {
		parts = append(parts, wm.help.View(wm.synthKeys))
	} else {
		parts = append(parts, wm.help.View(wm.keys))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
