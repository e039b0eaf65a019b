package domain

import (
	m "github.com/mouse-blink/pbox/internal/model"
)

// Visibility decides whether a box is shown given the cursor line.
type Visibility func(box *Box, lineText string, cursorLine int) bool

func visibleAll(*Box, string, int) bool  { return true }
func visibleNone(*Box, string, int) bool { return false }

func visibleCursor(b *Box, _ string, cursor int) bool {
	return b.LineNumber() == cursor
}

func visibleCursorAndReturn(b *Box, text string, cursor int) bool {
	return b.LineNumber() == cursor || isReturnLine(text)
}

// VisibleRange shows boxes between two lines inclusive.
func VisibleRange(first, last int) Visibility {
	return func(b *Box, _ string, _ int) bool {
		return b.LineNumber() >= first && b.LineNumber() <= last
	}
}

// fullPreset is the roomy layout. zoomed is used by the modes that show a
// few boxes at a time.
func fullPreset(s m.Settings, zoomed bool) m.Settings {
	s.BoxAlignsToTopOfLine = false
	s.BoxBorder = true
	s.ByRowOrCol = m.LayoutByCol
	s.CellPadding = 6
	s.ColBorder = false
	s.DisplayOnlyModifiedVars = false
	s.ShowBoxAtLoopStatements = false
	s.SpaceBetweenBoxes = 20

	if zoomed {
		s.Zoom, s.Opacity = 100, 100
	} else {
		s.Zoom, s.Opacity = 0, 0
	}

	return s
}

func compactPreset(s m.Settings) m.Settings {
	s.BoxAlignsToTopOfLine = true
	s.BoxBorder = false
	s.ByRowOrCol = m.LayoutByRow
	s.CellPadding = 6
	s.ColBorder = true
	s.DisplayOnlyModifiedVars = true
	s.ShowBoxAtLoopStatements = true
	s.SpaceBetweenBoxes = -4
	s.Zoom, s.Opacity = 100, 100

	return s
}

// viewModePolicy returns the visibility and settings a mode switches to.
// The boolean is false for modes that keep both as they are.
func viewModePolicy(mode m.ViewMode, s m.Settings) (Visibility, m.Settings, bool) {
	switch mode {
	case m.ViewFull:
		return visibleAll, fullPreset(s, false), true
	case m.ViewCursorAndReturn:
		return visibleCursorAndReturn, fullPreset(s, true), true
	case m.ViewCursor:
		return visibleCursor, fullPreset(s, true), true
	case m.ViewCompact:
		return visibleAll, compactPreset(s), true
	case m.ViewStealth:
		return visibleNone, fullPreset(s, false), true
	case m.ViewFocused:
		return visibleAll, fullPreset(s, true), true
	}

	return nil, s, false
}

// nextViewMode cycles Full, Cursor and Return, Compact, Stealth.
func nextViewMode(mode m.ViewMode) m.ViewMode {
	switch mode {
	case m.ViewFull:
		return m.ViewCursorAndReturn
	case m.ViewCursorAndReturn:
		return m.ViewCompact
	case m.ViewCompact:
		return m.ViewStealth
	default:
		return m.ViewFull
	}
}

// flipFullAndCursor toggles between Full and Cursor and Return.
func flipFullAndCursor(mode m.ViewMode) m.ViewMode {
	if mode == m.ViewFull {
		return m.ViewCursorAndReturn
	}

	return m.ViewFull
}
