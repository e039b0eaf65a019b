package adapter

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

const tuple = `[0, {"0": ["x"]}, {"0": [{"time": 0, "lineno": 0, "x": "1"}]}]`

// fakeTracer writes a shell script standing in for the tracer. It is run
// as "sh script program.py [values.json]".
func fakeTracer(t *testing.T, body string) *LocalInterpreter {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "run.sh")
	writeTestFile(t, script, body)

	li, err := NewLocalInterpreter("sh", script, NewLocalSourceFS())
	require.NoError(t, err)

	return li
}

func TestNewLocalInterpreter(t *testing.T) {
	t.Run("needs a tracer script", func(t *testing.T) {
		t.Setenv("RUNPY", "")

		_, err := NewLocalInterpreter("", "", NewLocalSourceFS())
		require.ErrorContains(t, err, "tracer script")
	})

	t.Run("falls back to the environment", func(t *testing.T) {
		t.Setenv("PYTHON3", "/opt/python3")
		t.Setenv("RUNPY", "/opt/run.py")

		li, err := NewLocalInterpreter("", "", NewLocalSourceFS())
		require.NoError(t, err)
		assert.Equal(t, "/opt/python3", li.python)
		assert.Equal(t, "/opt/run.py", li.runpy)
	})
}

func TestLocalInterpreter_Run(t *testing.T) {
	t.Run("collects the tuple and output", func(t *testing.T) {
		li := fakeTracer(t, `cat "$1"
printf '%s' '`+tuple+`' > "$1.out"
echo oops >&2
`)

		res, err := li.Run(context.Background(), m.RunRequest{Program: "x = 1", Dir: t.TempDir()})
		require.NoError(t, err)

		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "x = 1", res.Stdout)
		assert.Equal(t, "oops\n", res.Stderr)
		assert.JSONEq(t, tuple, string(res.Output))
	})

	t.Run("passes injected values", func(t *testing.T) {
		li := fakeTracer(t, `cat "$2"
printf '%s' '`+tuple+`' > "$1.out"
`)

		res, err := li.Run(context.Background(), m.RunRequest{
			Program: "y = ??",
			Values:  map[string]m.Env{m.ValueKey(1, 0): {Bindings: []m.Binding{{Name: "y", Value: "5"}}}},
		})
		require.NoError(t, err)

		assert.Contains(t, res.Stdout, `"(0,0)":`)
		assert.Contains(t, res.Stdout, `"y"`)
	})

	t.Run("exit code comes from the tuple", func(t *testing.T) {
		li := fakeTracer(t, `printf '%s' '[2, {}, {}]' > "$1.out"
exit 0
`)

		res, err := li.Run(context.Background(), m.RunRequest{Program: "return 1"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.ExitCode)
		assert.True(t, res.Usable())
	})

	t.Run("tracer crash keeps the process exit code", func(t *testing.T) {
		li := fakeTracer(t, "echo Traceback >&2\nexit 3\n")

		res, err := li.Run(context.Background(), m.RunRequest{Program: "x ="})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Nil(t, res.Output)
		assert.False(t, res.Usable())
	})

	t.Run("missing tuple with a clean exit is a failure", func(t *testing.T) {
		li := fakeTracer(t, "exit 0\n")

		res, err := li.Run(context.Background(), m.RunRequest{Program: "x = 1"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ExitCode)
	})

	t.Run("malformed tuple", func(t *testing.T) {
		li := fakeTracer(t, `printf '%s' '["zero", {}, {}]' > "$1.out"
`)

		_, err := li.Run(context.Background(), m.RunRequest{Program: "x = 1"})
		require.ErrorContains(t, err, "validate result")
	})

	t.Run("cancelled", func(t *testing.T) {
		li := fakeTracer(t, "exec sleep 10\n")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := li.Run(ctx, m.RunRequest{Program: "while True: pass"})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestResultSchema(t *testing.T) {
	schema, err := NewResultSchema()
	require.NoError(t, err)

	require.NoError(t, schema.Validate([]byte(tuple)))
	require.NoError(t, schema.Validate([]byte(`[0, {}, {"R3": [{"#": "0", "$": "2", "begin_loop": "0"}]}]`)))

	for name, data := range map[string]string{
		"not json":         `[0,`,
		"short tuple":      `[0, {}]`,
		"bad line key":     `[0, {}, {"line1": []}]`,
		"numeric iter key": `[0, {}, {"0": [{"#": 1}]}]`,
		"writes not lists": `[0, {"0": "x"}, {}]`,
	} {
		t.Run(name, func(t *testing.T) {
			require.Error(t, schema.Validate([]byte(data)))
		})
	}
}
