package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/fsnotify/fsnotify"

	m "github.com/mouse-blink/pbox/internal/model"
)

// configSchema is the closed shape of a pbox configuration file.
const configSchema = `
box?: close({
	viewMode?:                "Full" | "Cursor and Return" | "Cursor" | "Compact" | "Stealth" | "Focused" | "Custom"
	boxAlignsToTopOfLine?:    bool
	boxBorder?:               bool
	byRowOrColumn?:           "By Col" | "By Row"
	cellPadding?:             int & >=0
	colBorder?:               bool
	displayOnlyModifiedVars?: bool
	opacity?:                 int & >=0 & <=100
	showBoxAtLoopStatements?: bool
	showBoxAtEmptyLines?:     bool
	showBoxWhenNotExecuted?:  bool
	spaceBetweenBoxes?:       int
	zoom?:                    int & >=0 & <=100
	mouseShortcuts?:          bool
	supportSynthesis?:        bool
	updateDelay?:             int & >=0 & <=5000
})
python?: string
runpy?:  string
synth?: close({
	command?: [...string]
	url?:     string
})
proxy?: string
`

// Collaborators configures the external processes and services.
type Collaborators struct {
	Python       string   `json:"python"`
	RunPy        string   `json:"runpy"`
	SynthCommand []string `json:"synthCommand"`
	SynthURL     string   `json:"synthURL"`
	Proxy        string   `json:"proxy"`
}

// ConfigStore serves the display settings and tells listeners which keys
// changed.
type ConfigStore interface {
	Settings() m.Settings
	// Update sets one settings key by its configuration name.
	Update(key string, value any) error
	OnChange(fn func(keys []string)) (cancel func())
}

// CueConfigStore loads settings from a CUE file checked against a closed
// schema.
type CueConfigStore struct {
	path   string
	logger *slog.Logger
	cue    *cue.Context
	schema cue.Value

	mu            sync.Mutex
	settings      m.Settings
	collaborators Collaborators
	nextSub       int
	subs          map[int]func([]string)
}

// NewCueConfigStore reads path, or uses defaults when path is empty.
func NewCueConfigStore(path string, logger *slog.Logger) (*CueConfigStore, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString("close({" + configSchema + "})")
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	s := &CueConfigStore{
		path:     path,
		logger:   logger,
		cue:      ctx,
		schema:   schema,
		settings: m.DefaultSettings(),
		subs:     map[int]func([]string){},
	}

	if path == "" {
		return s, nil
	}

	settings, collaborators, err := s.load()
	if err != nil {
		return nil, err
	}

	s.settings = settings
	s.collaborators = collaborators

	return s, nil
}

func (s *CueConfigStore) load() (m.Settings, Collaborators, error) {
	settings := m.DefaultSettings()

	var collaborators Collaborators

	content, err := os.ReadFile(s.path)
	if err != nil {
		return settings, collaborators, fmt.Errorf("read config: %w", err)
	}

	value := s.cue.CompileBytes(content, cue.Filename(s.path))
	if err := value.Err(); err != nil {
		return settings, collaborators, fmt.Errorf("compile config: %w", err)
	}

	if err := s.schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return settings, collaborators, fmt.Errorf("validate config: %w", err)
	}

	if box := value.LookupPath(cue.ParsePath("box")); box.Exists() {
		if err := box.Decode(&settings); err != nil {
			return settings, collaborators, fmt.Errorf("decode box settings: %w", err)
		}
	}

	lookup := func(path string, target any) error {
		v := value.LookupPath(cue.ParsePath(path))
		if !v.Exists() {
			return nil
		}

		return v.Decode(target)
	}

	err = errors.Join(
		lookup("python", &collaborators.Python),
		lookup("runpy", &collaborators.RunPy),
		lookup("synth.command", &collaborators.SynthCommand),
		lookup("synth.url", &collaborators.SynthURL),
		lookup("proxy", &collaborators.Proxy),
	)
	if err != nil {
		return settings, collaborators, fmt.Errorf("decode config: %w", err)
	}

	return settings, collaborators, nil
}

// Detached returns an in-memory store starting from the current
// settings. Updates to either store are not seen by the other.
func (s *CueConfigStore) Detached() (*CueConfigStore, error) {
	d, err := NewCueConfigStore("", s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	d.settings = s.settings
	d.collaborators = s.collaborators
	s.mu.Unlock()

	return d, nil
}

// Settings returns the current settings.
func (s *CueConfigStore) Settings() m.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settings
}

// Collaborators returns the process and service settings.
func (s *CueConfigStore) Collaborators() Collaborators {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collaborators
}

// Update sets key to value after checking it against the schema.
func (s *CueConfigStore) Update(key string, value any) error {
	s.mu.Lock()

	fields, err := SettingsFields(s.settings)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if _, ok := fields[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown setting %q", key)
	}

	fields[key] = normalizeNumber(value)

	box := s.cue.Encode(map[string]any{"box": fields})
	if err := s.schema.Unify(box).Validate(cue.Concrete(true)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("setting %s: %w", key, err)
	}

	next := s.settings
	if err := box.LookupPath(cue.ParsePath("box")).Decode(&next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("setting %s: %w", key, err)
	}

	changed := ChangedKeys(s.settings, next)
	s.settings = next
	s.mu.Unlock()

	s.emit(changed)

	return nil
}

// OnChange subscribes to settings changes.
func (s *CueConfigStore) OnChange(fn func(keys []string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}

func (s *CueConfigStore) emit(keys []string) {
	if len(keys) == 0 {
		return
	}

	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	fns := make([]func([]string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(keys)
	}
}

// Watch reloads the file whenever it changes until ctx is done. Invalid
// files are logged and ignored.
func (s *CueConfigStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			s.logger.Warn("config watcher", "error", err)
		case ev := <-watcher.Events:
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			s.Reload()
		}
	}
}

// Reload re-reads the file and notifies listeners of changed keys.
func (s *CueConfigStore) Reload() {
	settings, collaborators, err := s.load()
	if err != nil {
		s.logger.Warn("reload config", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	changed := ChangedKeys(s.settings, settings)
	s.settings = settings
	s.collaborators = collaborators
	s.mu.Unlock()

	s.logger.Info("config reloaded", "path", s.path, "changed", changed)
	s.emit(changed)
}

// SettingsFields maps configuration names to values. Whole numbers are
// integers so they unify with the schema.
func SettingsFields(settings m.Settings) (map[string]any, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	for k, v := range fields {
		fields[k] = normalizeNumber(v)
	}

	return fields, nil
}

func normalizeNumber(v any) any {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) {
			return int64(n)
		}
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return int64(n)
		}
	case int:
		return int64(n)
	}

	return v
}

// ChangedKeys lists the configuration names whose values differ.
func ChangedKeys(before, after m.Settings) []string {
	a, errA := SettingsFields(before)
	b, errB := SettingsFields(after)

	if errA != nil || errB != nil {
		return nil
	}

	var keys []string

	for k, v := range b {
		if !reflect.DeepEqual(a[k], v) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys
}
