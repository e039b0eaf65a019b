package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/controller"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

const runLongDescription = `Run every Python source under the given paths once and print its
projection boxes.

Supports Go-style path patterns:
  - ./...          recursively scan current directory
  - ./src/...      recursively scan src directory
  - a.py b.py      project single files

Variable commands (--vars) are applied to every file in order, e.g.
  --vars "keep@all x|y" --vars "add total"`

var runParallelFlag int
var runModeFlag string
var runVarsFlags []string
var runSaveFlag string
var runPNGFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Project sources once and show their boxes",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode m.ViewMode
			if runModeFlag != "" {
				parsed, ok := m.ParseViewMode(runModeFlag)
				if !ok {
					return fmt.Errorf("unknown view mode %q", runModeFlag)
				}

				mode = parsed
			}

			if err := ensureWorkflow(); err != nil {
				return err
			}

			sources, err := workflow.GetSources(parsePaths(args)...)
			if err != nil {
				return err
			}

			snaps, err := workflow.ProjectAll(cmd.Context(), sources, domain.ProjectOptions{
				Mode:        mode,
				VarCommands: runVarsFlags,
				Threads:     runParallelFlag,
			})
			if err == nil {
				err = exportSnapshots(snaps, runSaveFlag, runPNGFlag)
			}

			if startErr := ui.Start(controller.WithSnapshotMode(), controller.WithSettings(configStore.Settings())); startErr != nil {
				return startErr
			}
			defer ui.Close()

			if displayErr := ui.DisplaySnapshots(snaps, err); displayErr != nil {
				return displayErr
			}

			ui.Wait()

			return nil
		},
	}
	cmd.Flags().IntVarP(&runParallelFlag, "parallel", "p", 1, "number of sources projected at once")
	cmd.Flags().StringVarP(&runModeFlag, "mode", "m", "", "view mode (Full, Cursor and Return, Compact, Stealth)")
	cmd.Flags().StringArrayVar(&runVarsFlags, "vars", nil, "variable command applied to every file (can be repeated)")
	cmd.Flags().StringVar(&runSaveFlag, "save", "", "directory to save snapshots to")
	cmd.Flags().StringVar(&runPNGFlag, "png", "", "directory to render boxes as PNG images to")

	return cmd
}

// exportSnapshots writes the snapshots and their images where asked.
func exportSnapshots(snaps []m.Snapshot, saveDir, pngDir string) error {
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o750); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}

		for _, snap := range snaps {
			if err := snapshots.SaveSnapshot(exportPath(saveDir, snap.Source, ".yaml"), snap); err != nil {
				return err
			}
		}
	}

	if pngDir != "" {
		if err := os.MkdirAll(pngDir, 0o750); err != nil {
			return fmt.Errorf("create image directory: %w", err)
		}

		exporter := adapter.NewPNGExporter(configStore.Settings())

		for _, snap := range snaps {
			if err := writePNG(exporter, exportPath(pngDir, snap.Source, ".png"), snap); err != nil {
				return err
			}
		}
	}

	return nil
}

func writePNG(exporter *adapter.PNGExporter, path m.Path, snap m.Snapshot) error {
	f, err := os.Create(string(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	tables := make([]*m.Table, len(snap.Tables))
	for i := range snap.Tables {
		tables[i] = &snap.Tables[i]
	}

	if err := exporter.Export(f, snap.Lines, tables); err != nil {
		_ = f.Close()
		return fmt.Errorf("render %s: %w", snap.Source, err)
	}

	return f.Close()
}

// exportPath flattens source into a file name under dir, so sources with
// the same base name in different directories do not collide.
func exportPath(dir string, source m.Path, ext string) m.Path {
	name := filepath.ToSlash(filepath.Clean(string(source)))
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(strings.TrimPrefix(name, "/"), "/", "__")

	return m.Path(filepath.Join(dir, name+ext))
}

func init() {
	rootCmd.AddCommand(runCmd)
}
