// pkg/shovel_err/util.go

package shovel_err

import (
	"errors"
	"fmt"
	"io"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var debugMode bool

func SetDebugMode(enabled bool) {
	debugMode = enabled
}

func DebugEnabled() bool {
	return debugMode
}

// UserError marks an error as expected and recoverable by the operator.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	if errors.As(err, &e) {
		return true
	}
	switch CategoryOf(err) {
	case CategoryValidation, CategoryUser:
		return err != nil
	}
	return false
}

// ExtractSummary picks the lines of a command's output that look like errors.
func ExtractSummary(output string, maxCandidates int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "No output provided."
	}

	lines := strings.Split(trimmed, "\n")
	var candidates []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "cannot") ||
			strings.Contains(lower, "no such") {
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		if len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}
		return strings.Join(candidates, " - ")
	}
	return strings.TrimSpace(lines[0])
}

// PrintError writes a human-readable error to w and logs it.
// Hints attached with cerr.WithHint are printed after the message.
func PrintError(w io.Writer, log *zap.Logger, userMessage string, err error) {
	if err == nil {
		return
	}
	if log == nil {
		log = zap.L()
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		// child output already reached the terminal
		log.Debug(userMessage, zap.Error(err))
		return
	}

	// the printed line is the console output; the log entry is for the file sink
	expected := IsExpectedUserError(err)
	log.Debug(userMessage, zap.Error(err), zap.Bool("expected", expected), zap.Int("exit_code", GetExitCode(err)))
	if expected {
		fmt.Fprintf(w, "[!] %s: %v\n", userMessage, err)
	} else {
		fmt.Fprintf(w, "[-] %s: %v\n", userMessage, err)
	}

	for _, hint := range cerr.GetAllHints(err) {
		fmt.Fprintf(w, "    hint: %s\n", hint)
	}

	if DebugEnabled() {
		fmt.Fprintf(w, "%+v\n", err)
	}
}
