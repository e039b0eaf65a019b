package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/pbox/internal/adapter"
	adaptermocks "github.com/mouse-blink/pbox/internal/adapter/mocks"
	controllermocks "github.com/mouse-blink/pbox/internal/controller/mocks"
	domainmocks "github.com/mouse-blink/pbox/internal/domain/mocks"
)

type testMocks struct {
	workflow    *domainmocks.MockWorkflow
	ui          *controllermocks.MockUI
	interpreter *adaptermocks.MockInterpreter
	synthesizer *adaptermocks.MockSynthesizer
	snapshots   *adaptermocks.MockSnapshotStore
}

// useMocks swaps every package collaborator for a mock and restores the
// originals when the test ends.
func useMocks(t *testing.T) testMocks {
	t.Helper()

	origLogger, origConfig := logger, configStore
	origInterp, origSynth := interpreter, synthesizer
	origWorkflow, origUI, origSnapshots := workflow, ui, snapshots

	t.Cleanup(func() {
		logger, configStore = origLogger, origConfig
		interpreter, synthesizer = origInterp, origSynth
		workflow, ui, snapshots = origWorkflow, origUI, origSnapshots
	})

	logger = adapter.DiscardLogger()

	store, err := adapter.NewCueConfigStore("", logger)
	require.NoError(t, err)

	configStore = store

	mocks := testMocks{
		workflow:    domainmocks.NewMockWorkflow(t),
		ui:          controllermocks.NewMockUI(t),
		interpreter: adaptermocks.NewMockInterpreter(t),
		synthesizer: adaptermocks.NewMockSynthesizer(t),
		snapshots:   adaptermocks.NewMockSnapshotStore(t),
	}

	workflow = mocks.workflow
	ui = mocks.ui
	interpreter = mocks.interpreter
	synthesizer = mocks.synthesizer
	snapshots = mocks.snapshots

	return mocks
}

// clearCollaborators unsets the lazily built collaborators for one test.
func clearCollaborators(t *testing.T) {
	t.Helper()

	origLogger, origConfig := logger, configStore
	origInterp, origSynth, origWorkflow := interpreter, synthesizer, workflow

	t.Cleanup(func() {
		logger, configStore = origLogger, origConfig
		interpreter, synthesizer, workflow = origInterp, origSynth, origWorkflow
	})

	logger, configStore = nil, nil
	interpreter, synthesizer, workflow = nil, nil, nil
}

func newTestRoot(sub ...*cobra.Command) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.AddCommand(sub...)
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	return cmd, &out
}
