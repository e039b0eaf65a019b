package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/controller"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

const watchLongDescription = `Keep the boxes of one source live. The file is re-run whenever it
changes on disk, and the settings file is reloaded when edited.

In a terminal the boxes are interactive: move between lines, switch view
modes, filter variables, focus loop iterations and synthesize "x = ??"
lines. Press ? for the key bindings.`

var watchNoSaveFlag bool

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <source>",
		Short: "Show live boxes for a source",
		Long:  watchLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchSource(ctx, m.Path(args[0]))
		},
	}
	cmd.Flags().BoolVar(&watchNoSaveFlag, "no-save", false, "do not write edits made in the boxes back to the file")

	return cmd
}

func watchSource(ctx context.Context, source m.Path) error {
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
	watcher := adapter.NewFileWatcher(source, sourceFS, buffer, logger)

	ctrl := newController(source, buffer)
	defer ctrl.Close()

	unsubscribe := ctrl.OnUpdateEvent(func(ev m.BoxUpdateEvent) {
		ui.DisplayUpdate(source, ev, controller.NewBoxView(buffer.Lines(), ctrl))
	})
	defer unsubscribe()

	w := controller.Watch{Source: source, Buffer: buffer, Controller: ctrl}
	if !watchNoSaveFlag {
		w.Save = watcher.WriteBack
	}

	if err := ui.Start(controller.WithWatchMode(w), controller.WithSettings(configStore.Settings())); err != nil {
		return err
	}
	defer ui.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return watcher.Watch(gctx) })
	g.Go(func() error { return configStore.Watch(gctx) })
	g.Go(func() error {
		_, err := ctrl.UpdateBoxes(gctx, nil)
		if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil
		}

		if err != nil {
			logger.Warn("first update", "source", string(source), "error", err)
		}

		return nil
	})

	go func() {
		ui.Wait()
		cancel()
	}()

	return g.Wait()
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
