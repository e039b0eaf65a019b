package domain

import (
	"math"
	"regexp"
	"strings"

	m "github.com/mouse-blink/pbox/internal/model"
)

const (
	seedMarker = "#@"
	endLoopTag = "## END LOOP"
)

var seedPattern = regexp.MustCompile(`#@\s*`)

// LoopFocus restricts every box to the environments of one loop instance.
// It is replaced, never mutated, when the focused iteration changes.
type LoopFocus struct {
	box         *Box
	iter        string
	iterPath    []string
	decorations []string
}

func newLoopFocus(box *Box, iter string) *LoopFocus {
	return &LoopFocus{box: box, iter: iter, iterPath: splitNums(iter)}
}

// Box returns the box the focus was taken from.
func (f *LoopFocus) Box() *Box { return f.box }

// Iter returns the focused iteration path.
func (f *LoopFocus) Iter() string { return f.iter }

// Matches reports whether an environment with the given loop ids and
// iteration path lies inside the focused loop instance. The loop ids are
// read from the controlling box on every call since its environments change
// with each run.
func (f *LoopFocus) Matches(loopID, iter string) bool {
	return m.IsPrefix(splitNums(f.box.LoopID()), splitNums(loopID)) &&
		m.IsPrefix(f.iterPath, splitNums(iter))
}

// HasSeed reports whether the controlling line carries a seed marker.
func (f *LoopFocus) HasSeed(lines []string) bool {
	n := f.box.LineNumber()
	return n >= 1 && n <= len(lines) && isSeedLine(lines[n-1])
}

// focusEdit is a text change the focus wants applied after its
// decorations were placed.
type focusEdit struct {
	change m.Change
}

// resetDecorations removes the focus decorations and, for seeded foci,
// fades the code outside the loop body and marks the seed. With addEnd it
// also returns the edit inserting an end-of-loop marker after the body
// when there is none yet.
func (f *LoopFocus) resetDecorations(ed decorator, lines []string, addEnd bool) *focusEdit {
	f.destroyDecorations(ed)

	if !f.HasSeed(lines) {
		return nil
	}

	seed := f.box.LineNumber()
	seedText := lines[seed-1]
	curIndent := indentOf(seedText)

	inLoop := func(n int) bool {
		s := lines[n-1]
		return isEmptyLine(s) || indentOf(s) >= curIndent
	}

	start := seed
	for start >= 1 && inLoop(start) {
		start--
	}

	end := seed
	for end <= len(lines) && inLoop(end) {
		end++
	}

	maxCol := func(n int) int {
		if n < 1 || n > len(lines) {
			return 1
		}

		return len(lines[n-1]) + 1
	}

	fadeBefore := m.Range{
		Start: m.Position{Line: 1, Column: 1},
		End:   m.Position{Line: max(start, 1), Column: maxCol(start)},
	}
	fadeAfter := m.Range{
		Start: m.Position{Line: end, Column: 1},
		End:   m.Position{Line: len(lines), Column: maxCol(len(lines))},
	}
	seedRange := m.Range{
		Start: m.Position{Line: seed, Column: curIndent + 1},
		End:   m.Position{Line: seed, Column: len(seedText) + 1},
	}

	f.decorations = []string{
		ed.AddDecoration(m.Decoration{Range: fadeBefore, ClassName: m.DecorationFade}),
		ed.AddDecoration(m.Decoration{Range: fadeAfter, ClassName: m.DecorationFade}),
		ed.AddDecoration(m.Decoration{Range: seedRange, ClassName: m.DecorationInfo}),
	}

	if !addEnd || end-2 < 0 || strings.HasSuffix(lines[end-2], endLoopTag) {
		return nil
	}

	last := end - 1
	at := m.Position{Line: last, Column: maxCol(last)}

	return &focusEdit{change: m.Change{
		Range: m.Range{Start: at, End: at},
		Text:  "\n" + seedText[:curIndent] + endLoopTag,
	}}
}

func (f *LoopFocus) destroyDecorations(ed decorator) {
	for _, id := range f.decorations {
		ed.RemoveDecoration(id)
	}

	f.decorations = nil
}

type decorator interface {
	AddDecoration(d m.Decoration) string
	RemoveDecoration(id string)
}

func isSeedLine(s string) bool {
	return strings.Contains(s, seedMarker)
}

// findSeed walks up from line looking for a seed that is not nested deeper
// than the loop headers passed on the way. It returns 0 when there is none.
func findSeed(lines []string, line int) int {
	minIndent := math.MaxInt

	for i := min(line, len(lines)); i >= 1; i-- {
		cur := lines[i-1]
		if isSeedLine(cur) && indentOf(cur) <= minIndent {
			return i
		}

		if isLoopLine(cur) {
			minIndent = min(minIndent, indentOf(cur))
		}
	}

	return 0
}

// removeSeeds drops the first seed marker of every line.
func removeSeeds(lines []string) {
	for i, l := range lines {
		if loc := seedPattern.FindStringIndex(l); loc != nil {
			lines[i] = l[:loc[0]] + l[loc[1]:]
		}
	}
}

// splitNums splits a comma-joined path, normalizing each component so
// "01" and "1" compare equal.
func splitNums(s string) []string {
	parts := m.SplitPath(s)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if t := strings.TrimLeft(p, "0"); t != "" {
			p = t
		} else if p != "" {
			p = "0"
		}

		parts[i] = p
	}

	return parts
}
