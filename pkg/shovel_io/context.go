// pkg/shovel_io/context.go

package shovel_io

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext is handed to every command. It carries the cancellation
// context, the command logger and the span that covers the invocation.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	Timestamp  time.Time
	Command    string
	RunID      string
	Attributes map[string]string
}

// NewContext starts the command span and derives a logger tagged with the run id.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	runID := uuid.New().String()
	ctx, span := telemetry.Start(parent, cmdName,
		attribute.String("run_id", runID),
		attribute.String("args", telemetry.TruncateArgs(os.Args[1:])),
	)

	logger := zap.L().Named(cmdName).With(
		zap.String("run_id", runID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	return &RuntimeContext{
		Ctx:        ctx,
		Log:        logger,
		Span:       span,
		Timestamp:  time.Now(),
		Command:    cmdName,
		RunID:      runID,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = shovel_err.NewInternalError("panic recovered", cerr.AssertionFailedf("panic: %v", r))
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records it on the span, and closes the span.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)
	exitCode := shovel_err.GetExitCode(err)

	switch {
	case err == nil:
		rc.Log.Debug("Command completed", zap.Duration("duration", duration))
	case shovel_err.IsExpectedUserError(err):
		rc.Log.Warn("Command stopped", zap.Duration("duration", duration), zap.Int("exit_code", exitCode), zap.Error(err))
	default:
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Int("exit_code", exitCode), zap.Error(err))
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.Int("exit_code", exitCode),
		attribute.String("os", runtime.GOOS),
		attribute.String("error_category", errorCategory(err)),
	}
	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	rc.Span.SetAttributes(attrs...)
	if err != nil {
		rc.Span.SetStatus(codes.Error, err.Error())
	}

	_ = rc.Log.Sync()
}

func errorCategory(err error) string {
	if err == nil {
		return ""
	}
	return shovel_err.CategoryOf(err).String()
}
