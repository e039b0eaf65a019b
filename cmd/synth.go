package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/controller"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

const synthLongDescription = `Fill in a line of the form "x = ??" (or "return ??") from examples.

The program is run once to collect the values reaching the line. Rows of
its box are then included as examples, optionally with new values for
the assigned variable, and the synthesizer is asked for an expression
satisfying them. With --accept the result is written back to the file.

Examples:
  pbox synth prog.py --line 4 --synth-url http://localhost:8080
  pbox synth prog.py --line 4 --example 0=5 --example 1=7 --accept`

var synthLineFlag int
var synthRowsFlag []int
var synthExamplesFlag []string
var synthAcceptFlag bool

// synthCmd represents the synth command.
var synthCmd = newSynthCmd()

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth <source>",
		Short: "Synthesize a hole line from examples",
		Long:  synthLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if synthLineFlag < 1 {
				return fmt.Errorf("--line must be a line number, got %d", synthLineFlag)
			}

			examples, err := parseExamples(synthExamplesFlag)
			if err != nil {
				return err
			}

			return synthesize(cmd.Context(), m.Path(args[0]), examples)
		},
	}
	cmd.Flags().IntVarP(&synthLineFlag, "line", "l", 0, "line holding the ?? hole")
	cmd.Flags().IntSliceVarP(&synthRowsFlag, "rows", "r", nil, "box rows to use as examples (default all)")
	cmd.Flags().StringArrayVarP(&synthExamplesFlag, "example", "e", nil, "ROW=VALUE sets the expected value of a row (can be repeated)")
	cmd.Flags().BoolVar(&synthAcceptFlag, "accept", false, "write the synthesized line back to the file")

	return cmd
}

type example struct {
	row   int
	value string
}

func parseExamples(args []string) ([]example, error) {
	examples := make([]example, 0, len(args))

	for _, arg := range args {
		rowText, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("example %q is not ROW=VALUE", arg)
		}

		row, err := strconv.Atoi(strings.TrimSpace(rowText))
		if err != nil {
			return nil, fmt.Errorf("example %q: bad row: %w", arg, err)
		}

		examples = append(examples, example{row: row, value: value})
	}

	return examples, nil
}

func synthesize(ctx context.Context, source m.Path, examples []example) error {
	if err := ensureInterpreter(); err != nil {
		return err
	}

	if err := ensureSynthesizer(); err != nil {
		return err
	}
	defer closeSynthesizer()

	text, err := sourceFS.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	buffer := adapter.NewBuffer(string(text))

	ctrl := newController(source, buffer)
	defer ctrl.Close()

	if _, err := ctrl.UpdateBoxes(ctx, nil); err != nil {
		return fmt.Errorf("project %s: %w", source, err)
	}

	session, err := ctrl.StartSynthesis(ctx, synthLineFlag)
	if err != nil {
		return fmt.Errorf("start synthesis at line %d: %w", synthLineFlag, err)
	}
	defer session.Cancel(ctx)

	if err := chooseExamples(ctx, session, examples); err != nil {
		return err
	}

	report := controller.SynthesisReport{Source: source, Line: synthLineFlag}

	ok, err := session.Submit(ctx)
	if err != nil {
		logger.Warn("synthesis", "line", synthLineFlag, "error", err)
	}

	if ok {
		report.Success = true
		report.Text = strings.TrimSpace(buffer.Line(synthLineFlag))
	}

	if ok && synthAcceptFlag {
		if err := session.Accept(ctx); err != nil {
			return err
		}

		if err := adapter.NewFileWatcher(source, sourceFS, buffer, logger).WriteBack(); err != nil {
			return err
		}

		report.Accepted = true
	}

	if err := ui.Start(controller.WithSnapshotMode(), controller.WithSettings(configStore.Settings())); err != nil {
		return err
	}
	defer ui.Close()

	ui.DisplaySynthesis(report)

	if err := ui.DisplaySnapshots([]m.Snapshot{snapshotOf(source, buffer, ctrl)}, nil); err != nil {
		return err
	}

	ui.Wait()

	return nil
}

// chooseExamples includes the rows picked on the command line, or every
// row of the box when none were.
func chooseExamples(ctx context.Context, session *domain.SynthesisSession, examples []example) error {
	include := true

	for _, ex := range examples {
		if err := session.SetCell(ctx, ex.row, session.OutVar(), ex.value); err != nil {
			return fmt.Errorf("example row %d: %w", ex.row, err)
		}
	}

	for _, row := range synthRowsFlag {
		if err := session.ToggleRow(ctx, row, &include); err != nil {
			return fmt.Errorf("include row %d: %w", row, err)
		}
	}

	if len(synthRowsFlag) > 0 || len(examples) > 0 {
		return nil
	}

	// each included row can make the next iteration reachable
	for row := 0; ; row++ {
		table := session.Table()
		if table == nil || row >= len(table.Rows) {
			return nil
		}

		if !outputEditable(table.Rows[row]) {
			continue
		}

		if err := session.ToggleRow(ctx, row, &include); err != nil {
			return fmt.Errorf("include row %d: %w", row, err)
		}
	}
}

// outputEditable reports whether the row is reachable. Only output cells
// are ever editable.
func outputEditable(row m.Row) bool {
	for _, c := range row.Cells {
		if c.Editable {
			return true
		}
	}

	return false
}

func snapshotOf(source m.Path, buffer *adapter.Buffer, ctrl domain.ProjectionController) m.Snapshot {
	snap := m.Snapshot{
		Source: source,
		Mode:   ctrl.ViewMode(),
		Lines:  buffer.Lines(),
	}

	if exec := ctrl.Execution(); exec != nil {
		snap.ExitCode = exec.ExitCode
	}

	for _, t := range ctrl.Tables() {
		snap.Tables = append(snap.Tables, *t)
	}

	return snap
}

func init() {
	rootCmd.AddCommand(synthCmd)
}
