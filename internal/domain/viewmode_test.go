package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "github.com/mouse-blink/pbox/internal/model"
)

func TestViewModePolicy(t *testing.T) {
	base := m.DefaultSettings()
	box := newBox(2, NewDeltaVarSet())

	t.Run("compact lays boxes out by row", func(t *testing.T) {
		vis, s, ok := viewModePolicy(m.ViewCompact, base)

		assert.True(t, ok)
		assert.Equal(t, m.LayoutByRow, s.ByRowOrCol)
		assert.True(t, s.DisplayOnlyModifiedVars)
		assert.True(t, vis(box, "x = 1", 5))
	})

	t.Run("cursor and return", func(t *testing.T) {
		vis, s, ok := viewModePolicy(m.ViewCursorAndReturn, base)

		assert.True(t, ok)
		assert.Equal(t, 100, s.Zoom)
		assert.True(t, vis(box, "x = 1", 2))
		assert.True(t, vis(box, "    return x", 7))
		assert.False(t, vis(box, "x = 1", 7))
	})

	t.Run("stealth hides every box", func(t *testing.T) {
		vis, _, ok := viewModePolicy(m.ViewStealth, base)

		assert.True(t, ok)
		assert.False(t, vis(box, "x = 1", 2))
	})

	t.Run("custom keeps the settings", func(t *testing.T) {
		vis, s, ok := viewModePolicy(m.ViewCustom, base)

		assert.False(t, ok)
		assert.Nil(t, vis)
		assert.Equal(t, base, s)
	})
}

func TestVisibleRange(t *testing.T) {
	vis := VisibleRange(2, 3)

	assert.False(t, vis(newBox(1, NewDeltaVarSet()), "", 0))
	assert.True(t, vis(newBox(2, NewDeltaVarSet()), "", 0))
	assert.True(t, vis(newBox(3, NewDeltaVarSet()), "", 0))
	assert.False(t, vis(newBox(4, NewDeltaVarSet()), "", 0))
}
