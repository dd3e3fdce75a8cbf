package shovel_io

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestNewContext(t *testing.T) {
	observed(t)
	rc := NewContext(context.Background(), "start")
	require.NotNil(t, rc.Ctx)
	assert.Equal(t, "start", rc.Command)
	assert.Len(t, rc.RunID, 36)
	assert.NotNil(t, rc.Attributes)
}

func TestEnd_LogsOutcome(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"success", nil, "Command completed"},
		{"validation", shovel_err.NewValidationError("bad ip"), "Command stopped"},
		{"failure", errors.New("compose up failed"), "Command failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observed(t)
			rc := NewContext(context.Background(), "start")
			err := tt.err
			rc.End(&err)
			assert.Equal(t, 1, logs.FilterMessage(tt.message).Len())
		})
	}
}

func TestHandlePanic(t *testing.T) {
	observed(t)
	rc := NewContext(context.Background(), "start")

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		panic("descriptor exploded")
	}

	err := run()
	require.Error(t, err)
	assert.Equal(t, 3, shovel_err.GetExitCode(err))
}
