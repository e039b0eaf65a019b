package controller

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/pbox/internal/model"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Simple delegate for snapshot list items.
type snapshotDelegate struct {
	offset int
}

func (d snapshotDelegate) Height() int  { return 1 }
func (d snapshotDelegate) Spacing() int { return 0 }
func (d snapshotDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d snapshotDelegate) Render(w io.Writer, lm list.Model, index int, item list.Item) {
	snap, ok := item.(snapshotItem)
	if !ok {
		return
	}

	isSelected := index == lm.Index()

	var pathStyle, countStyle lipgloss.Style

	var displayPath string

	width := lm.Width() - 12

	exitColor := lipgloss.Color("2")
	if snap.exitCode != 0 {
		exitColor = lipgloss.Color("1")
	}

	if isSelected {
		pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true)
		countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true).
			Width(6).
			Align(lipgloss.Right)

		displayPath = animateScroll(snap.path, width, d.offset)
	} else {
		pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
		countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			Width(6).
			Align(lipgloss.Right)

		displayPath = truncateToWidth(snap.path, width)
	}

	exitStyle := lipgloss.NewStyle().Foreground(exitColor).Width(3).Align(lipgloss.Right)

	line := fmt.Sprintf("%s %s  %s",
		countStyle.Render(fmt.Sprintf("%d", snap.boxes)),
		exitStyle.Render(fmt.Sprintf("%d", snap.exitCode)),
		pathStyle.Render(displayPath),
	)
	_, _ = fmt.Fprint(w, line)
}

func animateScroll(text string, width int, offset int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	gap := "   "
	// ticks before scrolling starts
	pause := 5

	if offset < pause {
		return truncateToWidth(text, width)
	}

	runes := []rune(text + gap)
	n := len(runes)
	start := (offset - pause) % n

	res := make([]rune, 0, width)
	for i := range width {
		res = append(res, runes[(start+i)%n])
	}

	return string(res)
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	const ellipsis = "…"

	maxWidth := width - lipgloss.Width(ellipsis)
	if maxWidth <= 0 {
		return ellipsis
	}

	currentWidth := 0

	result := make([]rune, 0, len(text))
	for _, r := range text {
		rWidth := lipgloss.Width(string(r))
		if currentWidth+rWidth > maxWidth {
			break
		}

		result = append(result, r)
		currentWidth += rWidth
	}

	return string(result) + ellipsis
}

// snapshotModel lists projected files and shows the boxes of the selected
// one.
type snapshotModel struct {
	settings     m.Settings
	width        int
	height       int
	fileList     list.Model
	delegate     snapshotDelegate
	detail       viewport.Model
	snapshots    []m.Snapshot
	err          error
	status       string
	rendered     bool
	animOffset   int
	lastSelected int
}

func newSnapshotModel(settings m.Settings) snapshotModel {
	delegate := snapshotDelegate{}
	fileList := list.New([]list.Item{}, delegate, 80, 10)
	fileList.SetShowPagination(false)
	fileList.SetShowFilter(true)
	fileList.SetShowHelp(false)
	fileList.SetShowTitle(false)
	fileList.SetShowStatusBar(false)
	fileList.FilterInput.Placeholder = "Filter by path…"

	return snapshotModel{
		settings:     settings,
		fileList:     fileList,
		delegate:     delegate,
		detail:       viewport.New(80, 10),
		lastSelected: -1,
	}
}

func (sm snapshotModel) Init() tea.Cmd {
	return tea.Tick(time.Second/2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (sm snapshotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		sm.width = msg.Width
		sm.height = msg.Height
		sm = sm.layout()

	case tickMsg:
		if sm.fileList.FilterState() != list.Filtering && sm.rendered {
			sm.animOffset++
			sm.delegate.offset = sm.animOffset
			sm.fileList.SetDelegate(sm.delegate)

			return sm, tea.Tick(time.Millisecond*150, func(t time.Time) tea.Msg {
				return tickMsg(t)
			})
		}

		return sm, nil

	case tea.KeyMsg:
		return sm.handleKey(msg)

	case snapshotsMsg:
		sm = sm.handleSnapshots(msg)

	case synthReportMsg:
		sm.status = msg.report.String()
	}

	return sm, cmd
}

func (sm snapshotModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if sm.fileList.FilterState() == list.Filtering {
		var cmd tea.Cmd

		sm.fileList, cmd = sm.fileList.Update(msg)

		return sm, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return sm, tea.Quit
	case "pgdown", "J":
		sm.detail.SetYOffset(sm.detail.YOffset + sm.detail.Height/2)
		return sm, nil
	case "pgup", "K":
		sm.detail.SetYOffset(sm.detail.YOffset - sm.detail.Height/2)
		return sm, nil
	case "y":
		sm.status = sm.copySelected()
		return sm, nil
	}

	var cmd tea.Cmd

	sm.fileList, cmd = sm.fileList.Update(msg)

	if sm.fileList.Index() != sm.lastSelected {
		sm.lastSelected = sm.fileList.Index()
		sm.animOffset = 0
		sm.delegate.offset = 0
		sm.fileList.SetDelegate(sm.delegate)
		sm.detail.SetContent(sm.selectedBoxes())
		sm.detail.GotoTop()
	}

	return sm, cmd
}

func (sm snapshotModel) handleSnapshots(msg snapshotsMsg) snapshotModel {
	sm.snapshots = msg.snapshots
	sm.err = msg.err

	items := make([]list.Item, 0, len(msg.snapshots))
	for _, snap := range msg.snapshots {
		items = append(items, snapshotItem{path: string(snap.Source), boxes: len(snap.Tables), exitCode: snap.ExitCode})
	}

	sm.fileList.SetItems(items)
	sm.rendered = true

	if len(items) > 0 && sm.lastSelected == -1 {
		sm.lastSelected = 0
	}

	sm.detail.SetContent(sm.selectedBoxes())

	return sm
}

func (sm snapshotModel) selected() (m.Snapshot, bool) {
	item, ok := sm.fileList.SelectedItem().(snapshotItem)
	if !ok {
		return m.Snapshot{}, false
	}

	for _, snap := range sm.snapshots {
		if string(snap.Source) == item.path {
			return snap, true
		}
	}

	return m.Snapshot{}, false
}

func (sm snapshotModel) selectedBoxes() string {
	snap, ok := sm.selected()
	if !ok {
		return ""
	}

	var b strings.Builder

	RenderBoxes(&b, snap.Lines, tablePointers(snap.Tables), snapshotSettings(sm.settings, snap.Mode))

	return strings.TrimRight(b.String(), "\n")
}

func (sm snapshotModel) copySelected() string {
	text := sm.selectedBoxes()
	if text == "" {
		return "nothing to copy"
	}

	if err := writeClipboard(text); err != nil {
		return fmt.Sprintf("copy failed: %v", err)
	}

	return "boxes copied"
}

func (sm snapshotModel) layout() snapshotModel {
	listHeight := max(sm.height/3, 5)
	sm.fileList.SetHeight(listHeight)
	sm.fileList.SetWidth(max(sm.width-6, 20))

	sm.detail.Width = max(sm.width-4, 20)
	sm.detail.Height = max(sm.height-listHeight-10, 5)

	return sm
}

func (sm snapshotModel) View() string {
	if !sm.rendered {
		return "Projecting sources…\n"
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := titleStyle.Render("▦ Projection Boxes")

	if sm.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 2)
		return lipgloss.JoinVertical(lipgloss.Left, title, errStyle.Render(sm.err.Error()), "")
	}

	boxes := 0
	for _, snap := range sm.snapshots {
		boxes += len(snap.Tables)
	}

	summary := summaryStyle.Render(fmt.Sprintf(
		"Files: %s   Boxes: %s",
		accentStyle.Render(fmt.Sprintf("%d", len(sm.snapshots))),
		accentStyle.Render(fmt.Sprintf("%d", boxes)),
	))

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8"))

	container := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Margin(0, 1).
		Padding(0, 1)

	files := container.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("%6s %3s  %s", "Boxes", "Rc", "File Path")),
		sm.fileList.View(),
	))

	detail := container.Render(sm.detail.View())

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(sm.width)

	footerText := "↑/k up • ↓/j down • pgup/pgdn scroll boxes • / filter • y copy • q quit"
	if sm.status != "" {
		footerText = sm.status + " • " + footerText
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		files,
		detail,
		footerStyle.Render(footerText),
	)
}
