package controller

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/pbox/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd      *cobra.Command
	settings m.Settings
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, settings: m.DefaultSettings()}
}

// Start initializes the UI.
func (s *SimpleUI) Start(options ...StartOption) error {
	cfg := newStartConfig(options)
	s.settings = cfg.settings

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {}

// Wait returns at once; the simple UI has nothing to close.
func (s *SimpleUI) Wait() {}

// DisplaySnapshots prints the boxes of every snapshot followed by a summary.
func (s *SimpleUI) DisplaySnapshots(snapshots []m.Snapshot, err error) error {
	if err != nil {
		s.printf("projection error: %v\n", err)
		return err
	}

	var buf bytes.Buffer

	for _, snap := range snapshots {
		_, _ = fmt.Fprintf(&buf, "== %s (exit %d, %s) ==\n", snap.Source, snap.ExitCode, snap.Mode)
		RenderBoxes(&buf, snap.Lines, tablePointers(snap.Tables), snapshotSettings(s.settings, snap.Mode))
	}

	summary := tablewriter.NewWriter(&buf)
	summary.SetHeader([]string{"Path", "Boxes", "Exit"})
	summary.SetBorder(false)
	summary.SetCenterSeparator("")
	summary.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	boxes := 0

	for _, snap := range snapshots {
		summary.Append([]string{string(snap.Source), fmt.Sprintf("%d", len(snap.Tables)), fmt.Sprintf("%d", snap.ExitCode)})
		boxes += len(snap.Tables)
	}

	summary.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(snapshots)),
		fmt.Sprintf("%d", boxes),
		"",
	})

	summary.Render()
	s.printf("%s", buf.String())

	return nil
}

// DisplayUpdate prints the update phase and, once finished, the boxes.
func (s *SimpleUI) DisplayUpdate(source m.Path, ev m.BoxUpdateEvent, view BoxView) {
	s.printf("[%s] update %s\n", source, ev.Phase)

	if ev.Phase != m.UpdateFinish {
		return
	}

	if view.Error != nil {
		s.printf("error at line %d: %s\n", view.Error.Range.Start.Line, view.Error.Message)
	}

	var buf bytes.Buffer

	RenderBoxes(&buf, view.Lines, view.Tables, snapshotSettings(s.settings, view.Mode))
	s.printf("%s", buf.String())
}

// DisplaySynthesis prints the synthesized line.
func (s *SimpleUI) DisplaySynthesis(report SynthesisReport) {
	s.printf("%s\n", report)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
