package model

import "time"

// ViewMode selects which boxes are visible and the display preset.
type ViewMode string

const (
	ViewFull            ViewMode = "Full"
	ViewCursorAndReturn ViewMode = "Cursor and Return"
	ViewCursor          ViewMode = "Cursor"
	ViewCompact         ViewMode = "Compact"
	ViewStealth         ViewMode = "Stealth"
	ViewFocused         ViewMode = "Focused"
	ViewCustom          ViewMode = "Custom"
)

// ParseViewMode accepts the mode names case-insensitively and a few
// short forms used on the command line.
func ParseViewMode(s string) (ViewMode, bool) {
	switch normalize(s) {
	case "full":
		return ViewFull, true
	case "cursorandreturn", "return":
		return ViewCursorAndReturn, true
	case "cursor":
		return ViewCursor, true
	case "compact":
		return ViewCompact, true
	case "stealth":
		return ViewStealth, true
	case "focused":
		return ViewFocused, true
	case "custom":
		return ViewCustom, true
	}

	return "", false
}

func normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '-' || c == '_' {
			continue
		}

		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}

		out = append(out, c)
	}

	return string(out)
}

// Layout orders the table either one column per variable or one row.
type Layout string

const (
	LayoutByCol Layout = "By Col"
	LayoutByRow Layout = "By Row"
)

// Settings holds the display preferences.
type Settings struct {
	ViewMode                ViewMode `json:"viewMode"`
	BoxAlignsToTopOfLine    bool     `json:"boxAlignsToTopOfLine"`
	BoxBorder               bool     `json:"boxBorder"`
	ByRowOrCol              Layout   `json:"byRowOrColumn"`
	CellPadding             int      `json:"cellPadding"`
	ColBorder               bool     `json:"colBorder"`
	DisplayOnlyModifiedVars bool     `json:"displayOnlyModifiedVars"`
	Opacity                 int      `json:"opacity"`
	ShowBoxAtLoopStatements bool     `json:"showBoxAtLoopStatements"`
	ShowBoxAtEmptyLines     bool     `json:"showBoxAtEmptyLines"`
	ShowBoxWhenNotExecuted  bool     `json:"showBoxWhenNotExecuted"`
	SpaceBetweenBoxes       int      `json:"spaceBetweenBoxes"`
	Zoom                    int      `json:"zoom"`
	MouseShortcuts          bool     `json:"mouseShortcuts"`
	SupportSynthesis        bool     `json:"supportSynthesis"`
	UpdateDelayMS           int      `json:"updateDelay"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ViewMode:                ViewFull,
		BoxBorder:               true,
		ByRowOrCol:              LayoutByCol,
		CellPadding:             6,
		DisplayOnlyModifiedVars: true,
		SpaceBetweenBoxes:       20,
		SupportSynthesis:        true,
		UpdateDelayMS:           250,
	}
}

// UpdateDelay returns the debounce as a duration.
func (s Settings) UpdateDelay() time.Duration {
	return time.Duration(s.UpdateDelayMS) * time.Millisecond
}
