// pkg/compose/runner.go

package compose

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"

	cerr "github.com/cockroachdb/errors"
)

// Invocation is one external process run.
type Invocation struct {
	Dir    string
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes processes. A non-zero exit is reported through the exit
// code, not the error; the error is reserved for failing to run at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (exitCode int, err error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// killed by a signal, report it the way a shell would
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return 1, nil
	}
	return -1, cerr.Wrapf(err, "run %s", inv.Name)
}
