// Package cmd provides the root command and CLI setup for pbox.
package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/pbox/internal/adapter"
	"github.com/mouse-blink/pbox/internal/controller"
	"github.com/mouse-blink/pbox/internal/domain"
	m "github.com/mouse-blink/pbox/internal/model"
)

var logLevel = new(slog.LevelVar)
var logger *slog.Logger
var configStore *adapter.CueConfigStore
var sourceFS adapter.SourceFS
var interpreter adapter.Interpreter
var synthesizer adapter.Synthesizer
var validator adapter.ValueValidator
var snapshots adapter.SnapshotStore
var workflow domain.Workflow
var ui controller.UI

func init() {
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	sourceFS = adapter.NewLocalSourceFS()
	snapshots = adapter.NewSnapshotStore(sourceFS)
	validator = adapter.NewStarlarkValidator()
}

var configFlag string
var logLevelFlag string
var journalFlag bool
var pythonFlag string
var runpyFlag string
var synthCmdFlag []string
var synthURLFlag string
var proxyFlag string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pbox",
		Short: "Projection boxes for Python programs",
		Long: `Pbox runs a Python program under a tracer and shows, next to every
line, a table of the values its variables took each time the line ran.

Loops get one row per iteration; a loop can be focused on a single
iteration, and lines of the form "x = ??" can be filled in by a
program synthesizer from examples edited in the box.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "CUE settings file")
	flags.StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&journalFlag, "journal", false, "also log to the systemd journal")
	flags.StringVar(&pythonFlag, "python", "", "python interpreter (default $PYTHON3 or python3)")
	flags.StringVar(&runpyFlag, "runpy", "", "tracer script (default $RUNPY)")
	flags.StringArrayVar(&synthCmdFlag, "synth-cmd", nil, "synthesizer command and arguments (repeat per argument)")
	flags.StringVar(&synthURLFlag, "synth-url", "", "synthesizer service base URL")
	flags.StringVar(&proxyFlag, "proxy", "", "proxy for the synthesizer service")

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setup builds the collaborators that are still unset, so tests can
// replace any of them beforehand.
func setup(cmd *cobra.Command) error {
	logLevel.Set(adapter.ParseLevel(logLevelFlag))

	if logger == nil {
		logger = adapter.NewLogger(adapter.LoggerOptions{
			Writer:  cmd.ErrOrStderr(),
			Level:   logLevel,
			Journal: journalFlag,
		})
	}

	if configStore == nil {
		store, err := adapter.NewCueConfigStore(configFlag, logger)
		if err != nil {
			return err
		}

		configStore = store
	}

	if sourceFS == nil {
		sourceFS = adapter.NewLocalSourceFS()
	}

	if snapshots == nil {
		snapshots = adapter.NewSnapshotStore(sourceFS)
	}

	return nil
}

// collaborators merges the command line over the settings file.
func collaborators() adapter.Collaborators {
	c := configStore.Collaborators()

	if pythonFlag != "" {
		c.Python = pythonFlag
	}

	if runpyFlag != "" {
		c.RunPy = runpyFlag
	}

	if len(synthCmdFlag) > 0 {
		c.SynthCommand = synthCmdFlag
	}

	if synthURLFlag != "" {
		c.SynthURL = synthURLFlag
	}

	if proxyFlag != "" {
		c.Proxy = proxyFlag
	}

	return c
}

func ensureInterpreter() error {
	if interpreter != nil {
		return nil
	}

	c := collaborators()

	li, err := adapter.NewLocalInterpreter(c.Python, c.RunPy, sourceFS)
	if err != nil {
		return err
	}

	interpreter = li

	return nil
}

func ensureWorkflow() error {
	if workflow != nil {
		return nil
	}

	if err := ensureInterpreter(); err != nil {
		return err
	}

	workflow = domain.NewWorkflow(sourceFS, interpreter, configStore, logger)

	return nil
}

// ensureSynthesizer picks a process synthesizer, then an HTTP one, and
// falls back to a synthesizer that never answers.
func ensureSynthesizer() error {
	if synthesizer != nil {
		return nil
	}

	c := collaborators()

	switch {
	case len(c.SynthCommand) > 0:
		rs, err := adapter.NewRestartingSynthesizer(func() (adapter.Synthesizer, error) {
			return adapter.StartProcessSynthesizer(c.SynthCommand, logger)
		}, logger)
		if err != nil {
			return err
		}

		synthesizer = rs
	case c.SynthURL != "":
		dialer, err := adapter.NewProxyDialer(adapter.ProxyAddr(c.Proxy))
		if err != nil {
			return err
		}

		synthesizer = adapter.NewHTTPSynthesizer(c.SynthURL, dialer, logger)
	default:
		logger.Debug("no synthesizer configured")

		synthesizer = adapter.NewNoopSynthesizer()
	}

	return nil
}

// closeSynthesizer stops a synthesizer process started by this run.
func closeSynthesizer() {
	closer, ok := synthesizer.(interface{ Close() error })
	if !ok {
		return
	}

	if err := closer.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("close synthesizer", "error", err)
	}
}

// newController opens a controller over buffer for source.
func newController(source m.Path, buffer *adapter.Buffer) domain.ProjectionController {
	return domain.NewProjectionController(domain.ControllerOptions{
		Editor:      buffer,
		Interpreter: interpreter,
		Config:      configStore,
		Synthesizer: synthesizer,
		Validator:   validator,
		Logger:      logger.With("source", string(source)),
		Dir:         filepath.Dir(string(source)),
	})
}

func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{"."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
