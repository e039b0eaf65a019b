package controller

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	m "github.com/mouse-blink/pbox/internal/model"
)

func TestRenderTable(t *testing.T) {
	t.Run("one column per variable", func(t *testing.T) {
		var buf bytes.Buffer

		RenderTable(&buf, loopTable(), m.DefaultSettings())

		out := buf.String()
		lines := strings.Split(strings.TrimSpace(out), "\n")

		assert.Contains(t, lines[1], "#")
		assert.Contains(t, lines[1], "y")
		assert.NotContains(t, out, "Y", "headers keep their case")
		assert.Equal(t, 2, strings.Count(out, "2"))
	})

	t.Run("one row per variable", func(t *testing.T) {
		s := m.DefaultSettings()
		s.ByRowOrCol = m.LayoutByRow
		s.BoxBorder = false

		out := TableString(loopTable(), s)
		lines := strings.Split(out, "\n")

		assert.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "#"))
		assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[1]), "y"))
	})

	t.Run("message", func(t *testing.T) {
		out := TableString(&m.Table{Line: 5, Message: "Line not executed"}, m.DefaultSettings())
		assert.Contains(t, out, "Line not executed")
	})

	t.Run("empty table renders nothing", func(t *testing.T) {
		var buf bytes.Buffer

		RenderTable(&buf, &m.Table{Line: 1}, m.DefaultSettings())
		assert.Empty(t, buf.String())
	})
}

func TestRenderBoxes(t *testing.T) {
	var buf bytes.Buffer

	RenderBoxes(&buf, []string{"x = 1", "for i in range(3):", "    y = i"}, []*m.Table{loopTable()}, m.DefaultSettings())

	assert.True(t, strings.HasPrefix(buf.String(), "line 3: y = i\n"))
}

func TestSnapshotSettings(t *testing.T) {
	base := m.DefaultSettings()

	assert.Equal(t, base, snapshotSettings(base, m.ViewFull))

	compact := snapshotSettings(base, m.ViewCompact)
	assert.Equal(t, m.LayoutByRow, compact.ByRowOrCol)
	assert.False(t, compact.BoxBorder)
}
