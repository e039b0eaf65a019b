package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/pbox/internal/controller"
	m "github.com/mouse-blink/pbox/internal/model"
)

var viewPNGFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <snapshot>...",
		Short: "View snapshots saved by run --save",
		Long:  "View projection boxes saved by run --save without running the sources again.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			snaps := make([]m.Snapshot, 0, len(args))

			for _, arg := range args {
				snap, err := snapshots.LoadSnapshot(m.Path(arg))
				if err != nil {
					return err
				}

				snaps = append(snaps, snap)
			}

			if err := exportSnapshots(snaps, "", viewPNGFlag); err != nil {
				return err
			}

			if err := ui.Start(controller.WithSnapshotMode(), controller.WithSettings(configStore.Settings())); err != nil {
				return err
			}
			defer ui.Close()

			if err := ui.DisplaySnapshots(snaps, nil); err != nil {
				return err
			}

			ui.Wait()

			return nil
		},
	}
	cmd.Flags().StringVar(&viewPNGFlag, "png", "", "directory to render boxes as PNG images to")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
