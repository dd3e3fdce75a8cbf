// pkg/compose/driver.go
//
// Deployment driver: thin wrappers over the compose CLI bound to one
// descriptor file inside the configuration root.

package compose

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// stderrTail bounds how much compose stderr is kept for error summaries.
const stderrTail = 8 << 10

// Driver runs compose against a single descriptor.
type Driver struct {
	Root       string
	Descriptor string
	// Command is the compose argv prefix, see ResolveCommand.
	Command []string
	Runner  Runner

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// UpOptions controls Up.
type UpOptions struct {
	Build bool
}

// DownOptions controls Down.
type DownOptions struct {
	// Volumes also removes named volumes declared by the descriptor.
	Volumes bool
}

// Result describes one finished compose invocation.
type Result struct {
	Command  string
	ExitCode int
	Duration time.Duration
}

// NewDriver returns a Driver that streams to the process's standard streams.
func NewDriver(root, descriptor string, command []string) *Driver {
	return &Driver{
		Root:       root,
		Descriptor: descriptor,
		Command:    command,
		Runner:     ExecRunner{},
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// DescriptorPath returns the descriptor path, resolved against Root when relative.
func (d *Driver) DescriptorPath() string {
	if filepath.IsAbs(d.Descriptor) {
		return d.Descriptor
	}
	return filepath.Join(d.Root, d.Descriptor)
}

// CheckDescriptor fails when the descriptor file is missing.
func (d *Driver) CheckDescriptor() error {
	path := d.DescriptorPath()
	info, err := os.Stat(path)
	if err != nil {
		return shovel_err.NewFilesystemError("deployment descriptor not found: "+path, err,
			"Run shovel from the directory that holds the docker-compose files, or pass --root")
	}
	if info.IsDir() {
		return shovel_err.NewFilesystemError("deployment descriptor is a directory: "+path, nil)
	}
	return nil
}

// Down stops and removes the deployment including orphaned services.
func (d *Driver) Down(ctx context.Context, opts DownOptions) (Result, error) {
	args := []string{"down", "--remove-orphans"}
	if opts.Volumes {
		args = append(args, "-v")
	}
	return d.runChecked(ctx, args)
}

// Up starts the deployment detached, optionally rebuilding images first.
func (d *Driver) Up(ctx context.Context, opts UpOptions) (Result, error) {
	args := []string{"up", "-d"}
	if opts.Build {
		args = append(args, "--build")
	}
	return d.runChecked(ctx, args)
}

// Status lists the deployment's services. Callers treat failure as non-fatal.
func (d *Driver) Status(ctx context.Context) (Result, error) {
	return d.runChecked(ctx, []string{"ps"})
}

// Logs follows service logs. A non-zero exit is returned as *shovel_err.ExitError
// so the CLI exits with the same status.
func (d *Driver) Logs(ctx context.Context, extra ...string) (Result, error) {
	args := append([]string{"logs", "-f"}, extra...)
	return d.runForwarded(ctx, args)
}

// Exec runs cmd inside service, forwarding its exit status.
func (d *Driver) Exec(ctx context.Context, service string, cmd ...string) (Result, error) {
	if strings.TrimSpace(service) == "" {
		return Result{}, shovel_err.NewValidationError("exec needs a service name",
			"Usage: shovel exec <service> <command> [args...]")
	}
	args := append([]string{"exec", service}, cmd...)
	return d.runForwarded(ctx, args)
}

func (d *Driver) runChecked(ctx context.Context, args []string) (Result, error) {
	var tail bytes.Buffer
	res, err := d.run(ctx, args, &tail)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		out := tail.String()
		if len(out) > stderrTail {
			out = out[len(out)-stderrTail:]
		}
		return res, shovel_err.NewProcessError(res.Command, res.ExitCode, out)
	}
	return res, nil
}

func (d *Driver) runForwarded(ctx context.Context, args []string) (Result, error) {
	res, err := d.run(ctx, args, nil)
	if err != nil {
		return res, err
	}
	return res, shovel_err.NewExitError(res.Command, res.ExitCode, nil)
}

func (d *Driver) run(ctx context.Context, args []string, captureStderr *bytes.Buffer) (Result, error) {
	logger := otelzap.Ctx(ctx)

	if len(d.Command) == 0 {
		return Result{}, shovel_err.NewInternalError("compose command not resolved", nil)
	}
	if err := d.CheckDescriptor(); err != nil {
		return Result{}, err
	}

	argv := append(append([]string{}, d.Command[1:]...), "-f", d.DescriptorPath())
	argv = append(argv, args...)
	res := Result{Command: strings.Join(append([]string{d.Command[0]}, argv...), " ")}

	stderr := d.Stderr
	if captureStderr != nil {
		if stderr == nil {
			stderr = captureStderr
		} else {
			stderr = io.MultiWriter(d.Stderr, captureStderr)
		}
	}

	logger.Info("Running compose", zap.String("command", res.Command), zap.String("dir", d.Root))
	start := time.Now()
	code, err := d.Runner.Run(ctx, Invocation{
		Dir:    d.Root,
		Name:   d.Command[0],
		Args:   argv,
		Stdin:  d.Stdin,
		Stdout: d.Stdout,
		Stderr: stderr,
	})
	res.Duration = time.Since(start)
	res.ExitCode = code
	if ctx.Err() != nil {
		return res, shovel_err.NewUserCancelledError(res.Command)
	}
	if err != nil {
		return res, cerr.WithHint(cerr.Wrap(err, "failed to run compose"),
			"Check that "+d.Command[0]+" is installed and on PATH")
	}

	fields := []zap.Field{
		zap.String("command", res.Command),
		zap.Int("exit_code", code),
		zap.Duration("duration", res.Duration),
	}
	if code != 0 {
		logger.Warn("Compose exited non-zero", fields...)
	} else {
		logger.Debug("Compose finished", fields...)
	}
	return res, nil
}
