package cmd

import (
	"context"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/orchestrator"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().Bool("mode-a", false, "")
	c.Flags().Bool("mode-b", false, "")
	c.Flags().Bool("mode-c", false, "")
	c.Flags().Bool("yes", false, "")
	addStartFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestRequestFromFlags(t *testing.T) {
	c := newFlagCommand(t, "--mode-c", "-i", "10.0.0.5", "-d", "2025-06-01T17:30+02:00",
		"-t", "120", "-r", "5", "-k", "ed25519", "--no-build", "--yes")

	req, err := requestFromFlags(c)
	require.NoError(t, err)
	assert.True(t, req.ModeSet)
	assert.Equal(t, runconfig.ModeRemoteOverIP, req.Mode)
	assert.Equal(t, "10.0.0.5", req.Inputs.TargetIP)
	assert.Equal(t, "2025-06-01T17:30+02:00", req.Inputs.StartDate)
	assert.Equal(t, "120", req.Inputs.TickLength)
	assert.Equal(t, "5", req.Inputs.RefreshRate)
	assert.Equal(t, "ed25519", req.Inputs.KeyAlgorithm)
	assert.True(t, req.NoBuild)
	assert.True(t, req.Yes)
	assert.False(t, req.ActionSet)
}

func TestRequestFromFlagsModes(t *testing.T) {
	tests := []struct {
		flag string
		want runconfig.Mode
	}{
		{"--mode-a", runconfig.ModeReplay},
		{"--mode-b", runconfig.ModeCapture},
		{"--mode-c", runconfig.ModeRemoteOverIP},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			req, err := requestFromFlags(newFlagCommand(t, tt.flag))
			require.NoError(t, err)
			assert.True(t, req.ModeSet)
			assert.Equal(t, tt.want, req.Mode)
		})
	}

	req, err := requestFromFlags(newFlagCommand(t))
	require.NoError(t, err)
	assert.False(t, req.ModeSet)
}

func TestRequestFromFlagsConflictingModes(t *testing.T) {
	_, err := requestFromFlags(newFlagCommand(t, "--mode-a", "--mode-b"))
	require.Error(t, err)
	assert.Equal(t, 2, shovel_err.GetExitCode(err))
}

func TestErrorTitle(t *testing.T) {
	assert.Equal(t, "Invalid input", errorTitle(shovel_err.NewValidationError("bad")))
	assert.Equal(t, "Stopped", errorTitle(shovel_err.NewUserCancelledError("start")))
	assert.Equal(t, "Busy", errorTitle(shovel_err.NewConflictError("locked", nil)))
	assert.Equal(t, "shovel failed", errorTitle(shovel_err.NewInternalError("boom", nil)))
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"start", "stop", "clear", "status", "logs", "exec"} {
		c, _, err := RootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}

	c, _, err := RootCmd.Find([]string{"ps"})
	require.NoError(t, err)
	assert.Equal(t, StatusCmd, c)
}

func TestActionRunEValidatesBeforeRunning(t *testing.T) {
	c := newFlagCommand(t, "--mode-a", "--mode-c")
	c.SetContext(context.Background())

	err := actionRunE(orchestrator.ActionStop, nil)(c, nil)
	require.Error(t, err)
	assert.Equal(t, 2, shovel_err.GetExitCode(err))
}

func TestExecuteRejectsConflictingModes(t *testing.T) {
	t.Setenv("SHOVEL_LOG_FILE", "-")
	RootCmd.SetArgs([]string{"--mode-a", "--mode-b", "--non-interactive"})
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	assert.Equal(t, 2, Execute(context.Background()))
}
