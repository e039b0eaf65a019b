package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	m "github.com/mouse-blink/pbox/internal/model"
)

// FileWatcher mirrors a file on disk into a Buffer, turning each save into
// the smallest line-level edit.
type FileWatcher struct {
	path   m.Path
	fs     SourceFS
	buffer *Buffer
	logger *slog.Logger
}

// NewFileWatcher constructs a FileWatcher for path.
func NewFileWatcher(path m.Path, fs SourceFS, buffer *Buffer, logger *slog.Logger) *FileWatcher {
	return &FileWatcher{path: path, fs: fs, buffer: buffer, logger: logger}
}

// Sync applies the difference between the file and the buffer. It reports
// whether the buffer changed.
func (w *FileWatcher) Sync() (bool, error) {
	lines, err := w.fs.ReadLines(w.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", w.path, err)
	}

	change, ok := LineDiff(w.buffer.Lines(), lines)
	if !ok {
		return false, nil
	}

	w.buffer.PushUndoStop()

	if err := w.buffer.ApplyEdits([]m.Change{change}); err != nil {
		return false, fmt.Errorf("apply %s: %w", w.path, err)
	}

	return true, nil
}

// WriteBack saves the buffer to the file.
func (w *FileWatcher) WriteBack() error {
	info, err := w.fs.FileInfo(w.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}

	return w.fs.WriteFile(w.path, []byte(w.buffer.Text()), info.Mode().Perm())
}

// Watch syncs on every write until ctx is done.
func (w *FileWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(string(w.path))); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	target := filepath.Clean(string(w.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			w.logger.Warn("file watcher", "error", err)
		case ev := <-watcher.Events:
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			if _, err := w.Sync(); err != nil {
				w.logger.Warn("sync file", "path", w.path, "error", err)
			}
		}
	}
}

// LineDiff returns one change turning before into after, trimming the
// common leading and trailing lines. It reports false when they are equal.
func LineDiff(before, after []string) (m.Change, bool) {
	limit := min(len(before), len(after))

	prefix := 0
	for prefix < limit && before[prefix] == after[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < limit-prefix && before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}

	if prefix == len(before) && prefix == len(after) {
		return m.Change{}, false
	}

	inserted := after[prefix : len(after)-suffix]
	lastLine := len(before)
	lineEnd := m.Position{Line: lastLine, Column: len(before[lastLine-1]) + 1}

	switch {
	case suffix > 0:
		text := ""
		if len(inserted) > 0 {
			text = strings.Join(inserted, "\n") + "\n"
		}

		return m.Change{
			Range: m.Range{
				Start: m.Position{Line: prefix + 1, Column: 1},
				End:   m.Position{Line: len(before) - suffix + 1, Column: 1},
			},
			Text: text,
		}, true
	case prefix > 0:
		text := ""
		if len(inserted) > 0 {
			text = "\n" + strings.Join(inserted, "\n")
		}

		return m.Change{
			Range: m.Range{
				Start: m.Position{Line: prefix, Column: len(before[prefix-1]) + 1},
				End:   lineEnd,
			},
			Text: text,
		}, true
	default:
		return m.Change{
			Range: m.Range{Start: m.Position{Line: 1, Column: 1}, End: lineEnd},
			Text:  strings.Join(after, "\n"),
		}, true
	}
}
