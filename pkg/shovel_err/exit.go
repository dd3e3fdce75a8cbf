// pkg/shovel_err/exit.go

package shovel_err

import "fmt"

// ExitError carries the exit status of a child process whose output was
// streamed to the terminal, so the CLI can exit with the same status.
type ExitError struct {
	Command string
	Code    int
	Cause   error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExitError returns nil when code is zero.
func NewExitError(command string, code int, cause error) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Command: command, Code: code, Cause: cause}
}
