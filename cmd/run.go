// cmd/run.go

package cmd

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/compose"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/interaction"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/orchestrator"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/output"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// requestFromFlags reads the mode and mode-C flags shared by the root
// command and the subcommands.
func requestFromFlags(cmd *cobra.Command) (orchestrator.Request, error) {
	var req orchestrator.Request

	modes := cli.ExclusiveBools(cmd, "mode-a", "mode-b", "mode-c")
	switch len(modes) {
	case 0:
	case 1:
		m, err := runconfig.ParseMode(modes[0][len("mode-"):])
		if err != nil {
			return req, err
		}
		req.Mode, req.ModeSet = m, true
	default:
		return req, shovel_err.NewValidationError("--mode-a, --mode-b and --mode-c are mutually exclusive",
			"Pass at most one mode flag")
	}

	req.Inputs = interaction.Inputs{
		TargetIP:     cli.GetStringOrEmpty(cmd, "target-ip"),
		StartDate:    cli.GetStringOrEmpty(cmd, "start-date"),
		TickLength:   cli.GetStringOrEmpty(cmd, "tick-length"),
		RefreshRate:  cli.GetStringOrEmpty(cmd, "refresh-rate"),
		KeyAlgorithm: cli.GetStringOrEmpty(cmd, "key-algorithm"),
	}
	req.NoBuild = cli.GetBool(cmd, "no-build")
	req.Yes = cli.GetBool(cmd, "yes")
	return req, nil
}

// interactive reports whether prompts may be shown.
func interactive(cmd *cobra.Command) bool {
	return !cli.GetBool(cmd, "non-interactive") && isTerminal()
}

// run builds the orchestrator for the loaded settings and executes req.
func run(rc *shovel_io.RuntimeContext, cmd *cobra.Command, req orchestrator.Request) error {
	if current == nil {
		return shovel_err.NewInternalError("settings not loaded", nil)
	}

	command, err := compose.ResolveCommand(current.ComposeCommand)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	var prompter *interaction.Prompter
	if interactive(cmd) {
		prompter = interaction.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	rc.Log.Info("Running shovel",
		zap.Bool("interactive", prompter != nil),
		zap.Strings("compose", command),
		zap.String("root", current.Root))

	o := orchestrator.New(current, command, prompter, out)
	err = o.Run(rc.Ctx, req)

	rc.Attributes["mode"] = o.Mode().Letter()
	rc.Attributes["action"] = o.Action().String()
	return err
}
