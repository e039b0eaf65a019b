package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

func step(iter, loop string, time int) m.Env {
	return m.Env{Iter: iter, LoopID: loop, Time: time, HasTime: true}
}

func begin(path, loop string) m.Env {
	return m.Env{Kind: m.EnvBeginLoop, Marker: path, Iter: path, LoopID: loop}
}

func end(path, loop string) m.Env {
	return m.Env{Kind: m.EnvEndLoop, Marker: path, Iter: path, LoopID: loop}
}

func filler(iter, loop string) m.Env {
	return m.Env{Kind: m.EnvFiller, Iter: iter, LoopID: loop}
}

func iters(envs []m.Env) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Iter)
	}

	return out
}

func TestFlatten_SimpleLoop(t *testing.T) {
	// for i in range(3): x = i
	envs := []m.Env{
		begin("0", "1"),
		step("0", "1", 1),
		step("1", "1", 3),
		step("2", "1", 5),
		end("3", "1"),
	}

	got, err := Flatten(envs)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2"}, iters(got))
	for _, e := range got {
		assert.False(t, e.IsMarker())
	}
}

func TestFlatten_FillsSkippedIterations(t *testing.T) {
	// the line only runs on odd iterations of a four-iteration loop
	envs := []m.Env{
		begin("0", "1"),
		step("1", "1", 4),
		step("3", "1", 9),
		end("4", "1"),
	}

	got, err := Flatten(envs)
	require.NoError(t, err)

	want := []m.Env{
		filler("0", "1"),
		step("1", "1", 4),
		filler("2", "1"),
		step("3", "1", 9),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected envs (-want +got):\n%s", diff)
	}
}

func TestFlatten_TrailingSkippedIterations(t *testing.T) {
	envs := []m.Env{
		begin("0", "1"),
		step("0", "1", 1),
		end("3", "1"),
	}

	got, err := Flatten(envs)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, iters(got))
	assert.Equal(t, m.EnvFiller, got[2].Kind)
}

func TestFlatten_NestedLoops(t *testing.T) {
	// outer loop at line 1 runs twice, inner loop at line 2 runs twice per
	// outer iteration; the body line skips (0,1) and the whole second
	// inner instance.
	envs := []m.Env{
		begin("0", "1"),
		begin("0,0", "1,2"),
		step("0,0", "1,2", 2),
		end("0,2", "1,2"),
		begin("1,0", "1,2"),
		end("1,2", "1,2"),
		end("2", "1"),
	}

	got, err := Flatten(envs)
	require.NoError(t, err)

	assert.Equal(t, []string{"0,0", "0,1", "1,0", "1,1"}, iters(got))
	assert.Equal(t, "1,2", got[1].LoopID)
}

func TestFlatten_NestedBeginCatchesUpOuterLevel(t *testing.T) {
	// the inner loop did not start on outer iteration 0
	envs := []m.Env{
		begin("0", "1"),
		begin("1,0", "1,3"),
		step("1,0", "1,3", 7),
		end("1,1", "1,3"),
		end("2", "1"),
	}

	got, err := Flatten(envs)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1,0"}, iters(got))
	assert.Equal(t, m.EnvFiller, got[0].Kind)
	assert.Equal(t, "1", got[0].LoopID)
}

func TestFlatten_IsIdempotent(t *testing.T) {
	envs := []m.Env{
		begin("0", "1"),
		step("1", "1", 4),
		end("3", "1"),
	}

	once, err := Flatten(envs)
	require.NoError(t, err)

	twice, err := Flatten(once)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("flatten is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFlatten_OutsideLoops(t *testing.T) {
	envs := []m.Env{step("", "", 0), step("", "", 8)}

	got, err := Flatten(envs)
	require.NoError(t, err)
	assert.Equal(t, envs, got)
}

func TestFlatten_UnbalancedEnd(t *testing.T) {
	_, err := Flatten([]m.Env{end("1", "1")})
	assert.ErrorIs(t, err, ErrUnbalancedLoop)
}
