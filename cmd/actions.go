// cmd/actions.go

package cmd

import (
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/orchestrator"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_io"
	"github.com/spf13/cobra"
)

// StartCmd starts (or restarts) the deployment.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stack, stopping a previous deployment first",
	Long: `Start the stack for the selected mode. If a .env from an earlier run
exists the running deployment is stopped first. In mode C the run
configuration is resolved, written to .env and patched into the descriptor
before starting.`,
	Example: `  shovel start --mode-c -i 192.168.1.10 -d 2025-06-01T17:30+02:00 -t 120 -r 5 -k ed25519
  shovel start --mode-a --no-build`,
	Args: cobra.NoArgs,
	RunE: actionRunE(orchestrator.ActionStart, nil),
}

// StopCmd stops the deployment.
var StopCmd = &cobra.Command{
	Use:     "stop",
	Aliases: []string{"down"},
	Short:   "Stop and remove the running services",
	Args:    cobra.NoArgs,
	RunE:    actionRunE(orchestrator.ActionStop, nil),
}

// ClearCmd stops the deployment and removes its state.
var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop the stack and delete .env, services config and captured data",
	Args:  cobra.NoArgs,
	RunE:  actionRunE(orchestrator.ActionClear, nil),
}

// StatusCmd lists the services.
var StatusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"ps"},
	Short:   "Show the state of the services",
	Args:    cobra.NoArgs,
	RunE:    actionRunE(orchestrator.ActionStatus, nil),
}

// LogsCmd follows service logs.
var LogsCmd = &cobra.Command{
	Use:   "logs [service...] [-- compose logs flags]",
	Short: "Follow service logs",
	Example: `  shovel logs
  shovel logs suricata
  shovel logs -- --tail 100 arkime`,
	RunE: actionRunE(orchestrator.ActionLogs, func(req *orchestrator.Request, args []string) {
		req.LogArgs = args
	}),
}

// ExecCmd runs a command in a service container.
var ExecCmd = &cobra.Command{
	Use:     "exec <service> <command> [args...]",
	Short:   "Run a command inside a service container",
	Example: `  shovel exec suricata suricatasc -c uptime`,
	Args:    cobra.MinimumNArgs(2),
	RunE: actionRunE(orchestrator.ActionExec, func(req *orchestrator.Request, args []string) {
		req.ExecService = args[0]
		req.ExecCommand = args[1:]
	}),
}

func init() {
	addStartFlags(StartCmd)
	cli.AddBoolFlag(ClearCmd, "yes", "y", false, "Do not ask for confirmation")

	// everything after the service belongs to the container command
	ExecCmd.Flags().SetInterspersed(false)
}

// actionRunE returns a RunE that runs action with the shared flags and any
// positional arguments applied by withArgs.
func actionRunE(action orchestrator.Action, withArgs func(*orchestrator.Request, []string)) func(*cobra.Command, []string) error {
	return shovel_cli.Wrap(func(rc *shovel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		req.Action, req.ActionSet = action, true
		if withArgs != nil {
			withArgs(&req, args)
		}
		return run(rc, cmd, req)
	})
}
