// pkg/shovel_err/classification.go
//
// Error classification with exit codes.

package shovel_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for appropriate handling
type ErrorCategory int

const (
	// CategorySystem - filesystem or descriptor issues (exit 1)
	CategorySystem ErrorCategory = iota
	// CategoryValidation - invalid operator input (exit 2)
	CategoryValidation
	// CategoryUser - operator cancelled or input closed (exit 130)
	CategoryUser
	// CategoryInternal - bugs in shovel itself (exit 3)
	CategoryInternal
	// CategoryDependency - docker or compose missing (exit 1)
	CategoryDependency
	// CategoryConflict - another instance holds the lock (exit 1)
	CategoryConflict
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryUser:
		return "user"
	case CategoryInternal:
		return "internal"
	case CategoryDependency:
		return "dependency"
	case CategoryConflict:
		return "conflict"
	default:
		return "system"
	}
}

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		fmt.Fprintf(&sb, "\n\nCause: %v", e.Cause)
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			fmt.Fprintf(&sb, "\n  %d. %s", i+1, step)
		}
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryUser:
		return 130
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	default:
		return 1
	}
}

// GetExitCode maps any error to a process exit code.
// Forwarded child exit codes win over classification.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}

	return 1
}

// CategoryOf returns the category of err, or CategorySystem if unclassified.
func CategoryOf(err error) ErrorCategory {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}
	return CategorySystem
}

// NewValidationError creates an error for input validation failures
func NewValidationError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Remediation: remediation,
	}
}

// WrapValidationError classifies an existing error as a validation failure.
func WrapValidationError(cause error, message string, remediation ...string) error {
	if cause == nil {
		return nil
	}
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewDependencyError creates an error for missing tooling
func NewDependencyError(dependency, operation string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryDependency,
		Message:     fmt.Sprintf("%s is required for %s but not found", dependency, operation),
		Remediation: remediation,
	}
}

// NewFilesystemError creates an error for filesystem issues
func NewFilesystemError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategorySystem,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewProcessError reports a runtime command that exited non-zero. Unlike
// ExitError the child's status is not forwarded; the CLI exits 1.
func NewProcessError(command string, code int, output string) error {
	msg := fmt.Sprintf("%s failed with exit status %d", command, code)
	var cause error
	if output != "" {
		cause = errors.New(ExtractSummary(output, 3))
	}
	return &ClassifiedError{
		Category: CategorySystem,
		Message:  msg,
		Cause:    cause,
		Remediation: []string{
			"Check the compose output above",
			"Run `shovel status` to see which services are running",
		},
	}
}

// NewConflictError reports that another shovel instance owns the deployment.
func NewConflictError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryConflict,
		Message:  message,
		Cause:    cause,
		Remediation: []string{
			"Wait for the other shovel command to finish",
			"If no other instance is running, check the PID in the lock file",
		},
	}
}

// NewInternalError creates an error for shovel bugs
func NewInternalError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryInternal,
		Message:  message,
		Cause:    cause,
		Remediation: []string{
			"This is likely a bug in shovel",
			"Rerun with --log-level=debug and include the output when reporting it",
		},
	}
}

// NewUserCancelledError creates an error for user-initiated cancellation
func NewUserCancelledError(operation string) error {
	return &ClassifiedError{
		Category:    CategoryUser,
		Message:     fmt.Sprintf("Operation cancelled by user: %s", operation),
		Remediation: []string{"Run the command again to retry"},
	}
}

// IsUserCancelled reports whether err is an operator cancellation.
func IsUserCancelled(err error) bool {
	return CategoryOf(err) == CategoryUser && err != nil
}
