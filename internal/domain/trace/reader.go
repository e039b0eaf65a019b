// Package trace decodes interpreter traces and reconstructs loop iterations.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Tracer key aliases for the reserved time and line keys.
const (
	rawTime = "_projection_boxes_time"
	rawLine = "_projection_boxes_lineno"
)

// Parse decodes the tracer's [exitCode, writes, trace] tuple.
func Parse(data []byte) (m.Execution, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes the tracer's [exitCode, writes, trace] tuple from r. Line
// references are shifted from the tracer's zero-based numbering to editor
// lines and binding order follows the order of keys in the input.
func Read(r io.Reader) (m.Execution, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var exec m.Execution

	if err := expectDelim(dec, '['); err != nil {
		return exec, err
	}

	var code json.Number
	if err := dec.Decode(&code); err != nil {
		return exec, fmt.Errorf("%w: exit code: %v", ErrMalformed, err)
	}

	exitCode, err := strconv.Atoi(code.String())
	if err != nil {
		return exec, fmt.Errorf("%w: exit code %q", ErrMalformed, code)
	}

	exec.ExitCode = exitCode

	if exec.Writes, err = readWrites(dec); err != nil {
		return exec, err
	}

	if exec.Trace, err = readTrace(dec); err != nil {
		return exec, err
	}

	if err := expectDelim(dec, ']'); err != nil {
		return exec, err
	}

	return exec, nil
}

func readWrites(dec *json.Decoder) (m.Writes, error) {
	raw := map[string][]string{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: writes: %v", ErrMalformed, err)
	}

	writes := make(m.Writes, len(raw))
	for k, vars := range raw {
		writes[ShiftLine(k)] = vars
	}

	return writes, nil
}

func readTrace(dec *json.Decoder) (m.Trace, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	tr := m.Trace{}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}

		line := ShiftLine(key)
		envs := []m.Env{}

		for dec.More() {
			env, err := readEnv(dec)
			if err != nil {
				return nil, fmt.Errorf("line %s: %w", line, err)
			}

			envs = append(envs, env)
		}

		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}

		tr[line] = envs
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return tr, nil
}

func readEnv(dec *json.Decoder) (m.Env, error) {
	var env m.Env

	if err := expectDelim(dec, '{'); err != nil {
		return env, err
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return env, err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return env, fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}

		value := scalar(raw)

		switch key {
		case m.KeyBegin:
			env.Kind = m.EnvBeginLoop
			env.Marker = value
		case m.KeyEnd:
			env.Kind = m.EnvEndLoop
			env.Marker = value
		case m.KeyIter:
			env.Iter = value
		case m.KeyLoopID:
			env.LoopID = shiftPath(value)
		case m.KeyTime, rawTime:
			t, err := strconv.Atoi(value)
			if err != nil {
				return env, fmt.Errorf("%w: time %q", ErrMalformed, value)
			}

			env.Time = t
			env.HasTime = true
		case m.KeyLine, rawLine:
			env.Line = ShiftLine(value)
		case m.KeyPrevLine:
			env.PrevLine = ShiftLine(value)
		case m.KeyNextLine:
			env.NextLine = ShiftLine(value)
		default:
			env.Bindings = append(env.Bindings, m.Binding{Name: key, Value: value})
		}
	}

	return env, expectDelim(dec, '}')
}

// ShiftLine converts a zero-based line reference ("3" or "R3") to the
// one-based editor numbering. Anything else is returned unchanged.
func ShiftLine(s string) string {
	prefix := ""
	if strings.HasPrefix(s, "R") {
		prefix = "R"
		s = s[1:]
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return prefix + s
	}

	return prefix + strconv.Itoa(n+1)
}

func shiftPath(s string) string {
	if s == "" {
		return s
	}

	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = ShiftLine(p)
	}

	return m.JoinPath(parts)
}

// scalar renders strings unquoted and every other JSON value verbatim.
func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(bytes.TrimSpace(raw))
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected key, got %v", ErrMalformed, tok)
	}

	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: expected %q: %v", ErrMalformed, want, err)
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformed, want, tok)
	}

	return nil
}
