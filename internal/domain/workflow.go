package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/pbox/internal/adapter"
	m "github.com/mouse-blink/pbox/internal/model"
)

const pythonFileExt = ".py"

// Workflow projects whole files without an interactive editor.
type Workflow interface {
	// GetSources lists the Python files under roots. A root ending in
	// "/..." is scanned recursively.
	GetSources(roots ...m.Path) ([]m.Path, error)
	// Project runs one file and snapshots its boxes.
	Project(ctx context.Context, source m.Path, opts ProjectOptions) (m.Snapshot, error)
	// ProjectAll projects sources on up to opts.Threads workers and
	// returns the snapshots in source order.
	ProjectAll(ctx context.Context, sources []m.Path, opts ProjectOptions) ([]m.Snapshot, error)
}

// ProjectOptions tunes a batch projection.
type ProjectOptions struct {
	// Mode switches the view mode before the run; empty keeps the
	// configured one.
	Mode m.ViewMode
	// VarCommands are applied in order after the run.
	VarCommands []string
	Threads     int
}

type workflow struct {
	fs     adapter.SourceFS
	interp adapter.Interpreter
	config *adapter.CueConfigStore
	logger *slog.Logger
	now    func() time.Time
}

// NewWorkflow creates a Workflow. Every projected file gets its own copy
// of the settings in config.
func NewWorkflow(fs adapter.SourceFS, interp adapter.Interpreter, config *adapter.CueConfigStore, logger *slog.Logger) Workflow {
	if logger == nil {
		logger = adapter.DiscardLogger()
	}

	return &workflow{fs: fs, interp: interp, config: config, logger: logger, now: time.Now}
}

func (w *workflow) GetSources(roots ...m.Path) ([]m.Path, error) {
	seen := make(map[m.Path]bool)

	var sources []m.Path

	for _, root := range roots {
		found, err := w.scanPath(root)
		if err != nil {
			return nil, err
		}

		for _, p := range found {
			if !seen[p] {
				seen[p] = true

				sources = append(sources, p)
			}
		}
	}

	return sources, nil
}

func (w *workflow) scanPath(root m.Path) ([]m.Path, error) {
	rootStr, recursive := parseRootPath(string(root))

	info, err := w.fs.FileInfo(m.Path(rootStr))
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	if !info.IsDir() {
		return []m.Path{m.Path(rootStr)}, nil
	}

	var sources []m.Path

	err = w.fs.Walk(m.Path(rootStr), recursive, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, pythonFileExt) {
			return nil
		}

		sources = append(sources, m.Path(path))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sources, nil
}

func parseRootPath(rootStr string) (path string, recursive bool) {
	if p, ok := strings.CutSuffix(rootStr, "/..."); ok {
		if p == "" || p == "." {
			p = "."
		}

		return p, true
	}

	return rootStr, false
}

func (w *workflow) Project(ctx context.Context, source m.Path, opts ProjectOptions) (m.Snapshot, error) {
	lines, err := w.fs.ReadLines(source)
	if err != nil {
		return m.Snapshot{}, fmt.Errorf("read %s: %w", source, err)
	}

	hash, err := w.fs.HashFile(source)
	if err != nil {
		return m.Snapshot{}, fmt.Errorf("hash %s: %w", source, err)
	}

	store, err := w.config.Detached()
	if err != nil {
		return m.Snapshot{}, err
	}

	logger := w.logger.With("source", string(source))

	ctrl := NewProjectionController(ControllerOptions{
		Editor:      adapter.NewBuffer(strings.Join(lines, "\n")),
		Interpreter: w.interp,
		Config:      store,
		Logger:      logger,
		Dir:         filepath.Dir(string(source)),
	})
	defer ctrl.Close()

	if opts.Mode != "" {
		ctrl.ChangeViewMode(opts.Mode)
	}

	exec, err := ctrl.UpdateBoxes(ctx, nil)
	if err != nil {
		return m.Snapshot{}, fmt.Errorf("project %s: %w", source, err)
	}

	for _, cmd := range opts.VarCommands {
		res, err := ctrl.RunVarCommand(cmd)
		if err != nil {
			return m.Snapshot{}, fmt.Errorf("%s: %w", source, err)
		}

		if len(res.Suggestions) > 0 {
			logger.Warn("variable pattern matched nothing", "command", res.Command.String(), "did_you_mean", res.Suggestions)
		}
	}

	snap := m.Snapshot{
		Source:   source,
		Hash:     hash,
		Taken:    w.now(),
		ExitCode: exec.ExitCode,
		Mode:     ctrl.ViewMode(),
		Lines:    lines,
	}

	for _, t := range ctrl.Tables() {
		snap.Tables = append(snap.Tables, *t)
	}

	logger.Debug("source projected", "exit_code", exec.ExitCode, "boxes", len(snap.Tables))

	return snap, nil
}

func (w *workflow) ProjectAll(ctx context.Context, sources []m.Path, opts ProjectOptions) ([]m.Snapshot, error) {
	threads := opts.Threads
	if threads <= 0 {
		threads = 1
	}

	snaps := make([]m.Snapshot, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	for i, src := range sources {
		g.Go(func() error {
			snap, err := w.Project(ctx, src, opts)
			if err != nil {
				return err
			}

			snaps[i] = snap

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snaps, nil
}
