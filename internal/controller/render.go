package controller

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	m "github.com/mouse-blink/pbox/internal/model"
)

// RenderTable writes one box as a text table laid out by settings.
func RenderTable(w io.Writer, t *m.Table, settings m.Settings) {
	grid := t.Grid(settings.ByRowOrCol)
	if len(grid) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(settings.BoxBorder)

	if !settings.ColBorder {
		table.SetColumnSeparator(" ")
		table.SetCenterSeparator(" ")
	}

	switch {
	case t.Message != "", settings.ByRowOrCol == m.LayoutByRow:
		table.AppendBulk(grid)
	default:
		table.SetHeader(grid[0])
		table.AppendBulk(grid[1:])
	}

	table.Render()
}

// TableString renders t to a string.
func TableString(t *m.Table, settings m.Settings) string {
	var buf bytes.Buffer

	RenderTable(&buf, t, settings)

	return strings.TrimRight(buf.String(), "\n")
}

// RenderBoxes writes every table under the source line it belongs to.
func RenderBoxes(w io.Writer, lines []string, tables []*m.Table, settings m.Settings) {
	for _, t := range tables {
		code := ""
		if t.Line >= 1 && t.Line <= len(lines) {
			code = strings.TrimSpace(lines[t.Line-1])
		}

		_, _ = fmt.Fprintf(w, "line %d: %s\n", t.Line, code)
		RenderTable(w, t, settings)
		_, _ = fmt.Fprintln(w)
	}
}

func tablePointers(tables []m.Table) []*m.Table {
	out := make([]*m.Table, len(tables))
	for i := range tables {
		out[i] = &tables[i]
	}

	return out
}

func snapshotSettings(base m.Settings, mode m.ViewMode) m.Settings {
	if mode == m.ViewCompact {
		base.ByRowOrCol = m.LayoutByRow
		base.BoxBorder = false
		base.ColBorder = true
	}

	return base
}
