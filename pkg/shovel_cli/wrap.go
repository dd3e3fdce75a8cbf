// pkg/shovel_cli/wrap.go

package shovel_cli

import (
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap gives a command a RuntimeContext, panic recovery and outcome logging.
func Wrap(fn func(rc *shovel_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := shovel_io.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		rc.Log.Debug("Command invoked",
			zap.String("command", cmd.CommandPath()),
			zap.Strings("args", args))

		err = fn(rc, cmd, args)
		if err != nil && !shovel_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
