package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// EnvKind distinguishes real line snapshots from synthetic loop events.
type EnvKind int

const (
	// EnvStep is a real per-line snapshot.
	EnvStep EnvKind = iota
	// EnvBeginLoop marks the start of a loop instance.
	EnvBeginLoop
	// EnvEndLoop marks the end of a loop instance.
	EnvEndLoop
	// EnvFiller stands in for an iteration where the line did not run.
	EnvFiller
)

// Reserved keys used by the interpreter trace.
const (
	KeyIter      = "#"
	KeyLoopID    = "$"
	KeyTime      = "time"
	KeyLine      = "lineno"
	KeyPrevLine  = "prev_lineno"
	KeyNextLine  = "next_lineno"
	KeyBegin     = "begin_loop"
	KeyEnd       = "end_loop"
	KeyReturn    = "rv"
	KeyException = "Exception Thrown"
)

// Binding is a single variable name and its printed value.
type Binding struct {
	Name  string
	Value string
}

// Env is one snapshot of the program state captured at an execution event.
type Env struct {
	Kind     EnvKind
	Marker   string // iteration path carried by begin/end loop markers
	Iter     string // comma-joined loop iteration counters
	LoopID   string // comma-joined loop header lines
	Time     int
	HasTime  bool
	Line     string
	PrevLine string
	NextLine string
	Bindings []Binding
}

// IsMarker reports whether the env is a begin/end loop event.
func (e Env) IsMarker() bool {
	return e.Kind == EnvBeginLoop || e.Kind == EnvEndLoop
}

// IterPath splits the iteration counters.
func (e Env) IterPath() []string {
	return SplitPath(e.Iter)
}

// LoopPath splits the loop ids.
func (e Env) LoopPath() []string {
	return SplitPath(e.LoopID)
}

// MarkerPath splits the marker iteration path.
func (e Env) MarkerPath() []string {
	return SplitPath(e.Marker)
}

// Lookup returns the value of a variable. The iteration key is resolved
// from Iter.
func (e Env) Lookup(name string) (string, bool) {
	if name == KeyIter {
		return e.Iter, e.Iter != ""
	}

	for _, b := range e.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}

	return "", false
}

// Has reports whether the variable is bound.
func (e Env) Has(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// Set overwrites a binding in place or appends it.
func (e *Env) Set(name, value string) {
	if name == KeyIter {
		e.Iter = value
		return
	}

	for i := range e.Bindings {
		if e.Bindings[i].Name == name {
			e.Bindings[i].Value = value
			return
		}
	}

	e.Bindings = append(e.Bindings, Binding{Name: name, Value: value})
}

// Names lists the bound variable names in emission order.
func (e Env) Names() []string {
	names := make([]string, 0, len(e.Bindings))
	for _, b := range e.Bindings {
		names = append(names, b.Name)
	}

	return names
}

// Clone returns a deep copy.
func (e Env) Clone() Env {
	c := e
	c.Bindings = append([]Binding(nil), e.Bindings...)

	return c
}

// KeyCount counts reserved and bound keys the way the raw trace object
// would have them. Fillers carry only the iteration and loop keys.
func (e Env) KeyCount() int {
	n := len(e.Bindings)
	for _, s := range []string{e.Iter, e.LoopID, e.Line, e.PrevLine, e.NextLine, e.Marker} {
		if s != "" {
			n++
		}
	}

	if e.HasTime {
		n++
	}

	return n
}

// MarshalJSON writes the env as an ordered object.
func (e Env) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	first := true
	field := func(k string, v []byte) {
		if !first {
			buf.WriteByte(',')
		}

		first = false
		key, _ := json.Marshal(k)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(v)
	}
	str := func(s string) []byte {
		b, _ := json.Marshal(s)
		return b
	}

	switch e.Kind {
	case EnvBeginLoop:
		field(KeyBegin, str(e.Marker))
	case EnvEndLoop:
		field(KeyEnd, str(e.Marker))
	}

	if e.Iter != "" {
		field(KeyIter, str(e.Iter))
	}

	if e.LoopID != "" {
		field(KeyLoopID, str(e.LoopID))
	}

	if e.HasTime {
		field(KeyTime, []byte(strconv.Itoa(e.Time)))
	}

	if e.Line != "" {
		field(KeyLine, str(e.Line))
	}

	if e.PrevLine != "" {
		field(KeyPrevLine, str(e.PrevLine))
	}

	if e.NextLine != "" {
		field(KeyNextLine, str(e.NextLine))
	}

	for _, b := range e.Bindings {
		field(b.Name, str(b.Value))
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// BindingsJSON writes only the bound variables as an ordered object.
func (e Env) BindingsJSON() ([]byte, error) {
	vars := Env{Bindings: e.Bindings}
	return vars.MarshalJSON()
}

// JoinPath joins path components with commas.
func JoinPath(parts []string) string {
	return strings.Join(parts, ",")
}

// SplitPath splits a comma-joined path. The empty string has no
// components.
func SplitPath(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, ",")
}

// IsPrefix reports whether prefix is a leading sub-slice of path.
func IsPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}

	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}

	return true
}
