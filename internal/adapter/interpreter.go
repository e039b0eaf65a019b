// Package adapter holds the collaborators the projection engine talks to:
// interpreter and synthesizer processes, the editor buffer, configuration,
// file watching and logging.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Interpreter runs a program under the tracer.
type Interpreter interface {
	Run(ctx context.Context, req m.RunRequest) (m.RunResult, error)
}

// LocalInterpreter runs `python run.py <file> [<values>]` as a child
// process.
type LocalInterpreter struct {
	python string
	runpy  string
	fs     SourceFS
	schema *ResultSchema
}

// NewLocalInterpreter builds an interpreter for the given python binary
// and tracer script. Empty arguments fall back to PYTHON3 and RUNPY.
func NewLocalInterpreter(python, runpy string, fs SourceFS) (*LocalInterpreter, error) {
	if python == "" {
		python = os.Getenv("PYTHON3")
	}

	if python == "" {
		python = "python3"
	}

	if runpy == "" {
		runpy = os.Getenv("RUNPY")
	}

	if runpy == "" {
		return nil, errors.New("no tracer script configured, set --runpy or RUNPY")
	}

	schema, err := NewResultSchema()
	if err != nil {
		return nil, err
	}

	return &LocalInterpreter{python: python, runpy: runpy, fs: fs, schema: schema}, nil
}

// Run writes the program to a scratch directory, runs the tracer on it and
// collects its output tuple. Cancelling ctx kills the process.
func (li *LocalInterpreter) Run(ctx context.Context, req m.RunRequest) (m.RunResult, error) {
	dir, err := li.fs.CreateTempDir("pbox-run-*")
	if err != nil {
		return m.RunResult{}, err
	}
	defer li.fs.RemoveAll(dir) //nolint:errcheck

	file := filepath.Join(string(dir), "program.py")
	if err := li.fs.WriteFile(m.Path(file), []byte(req.Program), 0o600); err != nil {
		return m.RunResult{}, err
	}

	args := []string{li.runpy, file}

	if len(req.Values) > 0 {
		valuesFile := filepath.Join(string(dir), "values.json")

		data, err := encodeValues(req.Values)
		if err != nil {
			return m.RunResult{}, err
		}

		if err := li.fs.WriteFile(m.Path(valuesFile), data, 0o600); err != nil {
			return m.RunResult{}, err
		}

		args = append(args, valuesFile)
	}

	cmd := exec.CommandContext(ctx, li.python, args...)
	cmd.Dir = req.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return m.RunResult{}, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return m.RunResult{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return m.RunResult{}, fmt.Errorf("start %s: %w", li.python, err)
	}

	var stdout, stderr bytes.Buffer

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return m.RunResult{}, ctx.Err()
	}

	if copyErr != nil {
		return m.RunResult{}, fmt.Errorf("read output: %w", copyErr)
	}

	res := m.RunResult{
		ExitCode: exitCode(waitErr),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("wait %s: %w", li.python, waitErr)
	}

	out, err := li.fs.ReadFile(m.Path(file + ".out"))
	if err != nil {
		// no tuple: the tracer itself failed, keep the process exit code
		if res.ExitCode == 0 {
			res.ExitCode = 1
		}

		return res, nil
	}

	if err := li.schema.Validate(out); err != nil {
		return res, err
	}

	code, err := tupleExitCode(out)
	if err != nil {
		return res, err
	}

	res.ExitCode = code
	res.Output = out

	return res, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

func tupleExitCode(out []byte) (int, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(out, &tuple); err != nil {
		return 0, fmt.Errorf("decode exit code: %w", err)
	}

	if len(tuple) == 0 {
		return 0, errors.New("decode exit code: empty result")
	}

	var code int
	if err := json.Unmarshal(tuple[0], &code); err != nil {
		return 0, fmt.Errorf("decode exit code: %w", err)
	}

	return code, nil
}

// encodeValues writes injected values as {"(line,time)": {var: expr}} with
// keys in a stable order.
func encodeValues(values map[string]m.Env) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		env, err := values[k].BindingsJSON()
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(env)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
