/* cmd/root.go */

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/orchestrator"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/settings"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_io"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set with -ldflags at build time.
var Version = "dev"

var (
	current           *settings.Settings
	telemetryShutdown telemetry.Shutdown
)

// RootCmd is the base command for shovel. Without a subcommand it accepts the
// action as --stop, --clear or --status and otherwise starts the deployment.
var RootCmd = &cobra.Command{
	Use:   "shovel",
	Short: "Deploy and operate the CTF network analysis stack",
	Long: `shovel starts, stops and inspects the network analysis stack in one of
three modes:

  A  pcap replay         replay capture files from disk
  B  capture interface   capture from a local network interface
  C  PCAP-over-IP        stream tcpdump from a remote host over ssh (default)

In mode C the target host, CTF start time, tick length, refresh rate and SSH
key algorithm are taken from flags or asked for interactively, written to .env
and patched into docker-compose-c.yml before the stack is started.`,
	Version:           Version,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: shovel_cli.Wrap(func(rc *shovel_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}

		actions := cli.ExclusiveBools(cmd, "stop", "clear", "status")
		switch len(actions) {
		case 0:
			req.NoArgs = cmd.Flags().NFlag() == 0 && len(args) == 0
		case 1:
			req.Action, _ = orchestrator.ParseAction(actions[0])
			req.ActionSet = true
		default:
			return shovel_err.NewValidationError("only one of --stop, --clear, --status may be given",
				"Pass a single action flag or use a subcommand")
		}
		return run(rc, cmd, req)
	}),
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.String(settings.KeyRoot, ".", "Configuration root holding the docker-compose files and .env")
	pf.String(settings.KeyConfig, "", "Settings file (default <root>/"+settings.FileName+")")
	pf.String(settings.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	pf.String(settings.KeyLogFile, "", `JSON log file ("-" disables file logging)`)
	pf.Bool(settings.KeyTelemetry, false, "Write trace spans to the telemetry file")
	pf.String(settings.KeyComposeCommand, "", `Compose command override, e.g. "podman compose"`)
	pf.Bool("non-interactive", false, "Never prompt; fail on missing or invalid values")

	pf.Bool("mode-a", false, "Mode A: pcap replay")
	pf.Bool("mode-b", false, "Mode B: capture interface")
	pf.Bool("mode-c", false, "Mode C: PCAP-over-IP (default)")

	addStartFlags(RootCmd)

	cli.AddBoolFlag(RootCmd, "stop", "", false, "Stop the deployment")
	cli.AddBoolFlag(RootCmd, "clear", "", false, "Stop and delete configuration and captured data")
	cli.AddBoolFlag(RootCmd, "status", "", false, "Show service status")
	cli.AddBoolFlag(RootCmd, "yes", "y", false, "Do not ask for confirmation")

	RootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return shovel_err.WrapValidationError(err, err.Error(), "Run shovel --help for usage")
	})

	for _, c := range []*cobra.Command{StartCmd, StopCmd, ClearCmd, StatusCmd, LogsCmd, ExecCmd} {
		RootCmd.AddCommand(c)
	}
}

// addStartFlags registers the mode-C parameters and --no-build.
func addStartFlags(cmd *cobra.Command) {
	cli.AddStringFlag(cmd, "target-ip", "i", "", "Target IPv4 address of the capture host", false)
	cli.AddStringFlag(cmd, "start-date", "d", "", "CTF start, YYYY-MM-DDThh:mm[+HH:MM]", false)
	cli.AddStringFlag(cmd, "tick-length", "t", "", "Tick length in seconds", false)
	cli.AddStringFlag(cmd, "refresh-rate", "r", "", "Refresh rate in seconds", false)
	cli.AddStringFlag(cmd, "key-algorithm", "k", "", "SSH key algorithm (rsa, ed25519, ecdsa, dsa)", false)
	cli.AddBoolFlag(cmd, "no-build", "", false, "Do not rebuild images before starting")
}

// setup loads settings and initialises logging and telemetry before any
// command runs.
func setup(cmd *cobra.Command, _ []string) error {
	v := settings.New()
	if err := cli.BindFlagsToViper(cmd, v); err != nil {
		return shovel_err.NewInternalError("failed to bind flags", err)
	}

	s, err := settings.Load(v)
	if err != nil {
		return err
	}
	current = s

	if _, err := logger.Init(logger.Options{Level: s.LogLevel, FilePath: s.LogFile}); err != nil {
		return err
	}
	shovel_err.SetDebugMode(strings.EqualFold(s.LogLevel, "debug") || strings.EqualFold(s.LogLevel, "trace"))

	shutdown, err := telemetry.Init("shovel", s.Telemetry, s.TelemetryPath)
	if err != nil {
		logger.L().Warn("Telemetry disabled", zap.Error(err))
		shutdown, _ = telemetry.Init("shovel", false, "")
	}
	telemetryShutdown = shutdown

	logger.L().Debug("Settings loaded",
		zap.String("root", s.Root),
		zap.String("config_file", s.ConfigFile),
		zap.Bool("telemetry", s.Telemetry))
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	defer logger.Sync()

	err := RootCmd.ExecuteContext(ctx)

	if telemetryShutdown != nil {
		if serr := telemetryShutdown(context.Background()); serr != nil {
			logger.L().Warn("Failed to flush telemetry", zap.Error(serr))
		}
	}

	if err != nil {
		shovel_err.PrintError(os.Stderr, logger.L(), errorTitle(err), err)
	}
	return shovel_err.GetExitCode(err)
}

func errorTitle(err error) string {
	switch shovel_err.CategoryOf(err) {
	case shovel_err.CategoryValidation:
		return "Invalid input"
	case shovel_err.CategoryUser:
		return "Stopped"
	case shovel_err.CategoryDependency:
		return "Missing dependency"
	case shovel_err.CategoryConflict:
		return "Busy"
	}
	return fmt.Sprintf("%s failed", RootCmd.Name())
}
