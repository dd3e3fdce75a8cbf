package shovel_cli

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_io"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "start"}
	cmd.SetContext(context.Background())
	return cmd
}

func TestWrap_PassesContext(t *testing.T) {
	var got *shovel_io.RuntimeContext
	run := Wrap(func(rc *shovel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		got = rc
		assert.Equal(t, []string{"x"}, args)
		return nil
	})

	require.NoError(t, run(newCmd(), []string{"x"}))
	require.NotNil(t, got)
	assert.Equal(t, "start", got.Command)
}

func TestWrap_PreservesClassification(t *testing.T) {
	run := Wrap(func(*shovel_io.RuntimeContext, *cobra.Command, []string) error {
		return shovel_err.NewValidationError("bad ip")
	})
	err := run(newCmd(), nil)
	assert.Equal(t, 2, shovel_err.GetExitCode(err))

	run = Wrap(func(*shovel_io.RuntimeContext, *cobra.Command, []string) error {
		return shovel_err.NewExitError("logs", 9, errors.New("exit status 9"))
	})
	err = run(newCmd(), nil)
	assert.Equal(t, 9, shovel_err.GetExitCode(err))
}

func TestWrap_RecoversPanic(t *testing.T) {
	run := Wrap(func(*shovel_io.RuntimeContext, *cobra.Command, []string) error {
		panic("boom")
	})
	err := run(newCmd(), nil)
	require.Error(t, err)
	assert.Equal(t, 3, shovel_err.GetExitCode(err))
}
