package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"TRACE", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"Warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestInit_WritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "shovel.log")

	log, err := Init(Options{Level: "info", FilePath: path, Console: zapcore.AddSync(&console)})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	log.Debug("hidden on console")
	log.Info("configuration saved", zap.String("key", "TARGET_IP"))
	Sync()

	assert.Contains(t, console.String(), "configuration saved")
	assert.NotContains(t, console.String(), "hidden on console")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// the file sink records debug entries regardless of console level
	assert.Contains(t, string(data), "hidden on console")
	assert.Contains(t, string(data), `"key":"TARGET_IP"`)
	assert.Same(t, log, L())
}

func TestInit_FileDisabled(t *testing.T) {
	var console bytes.Buffer
	_, err := Init(Options{Level: "debug", FilePath: "-", Console: zapcore.AddSync(&console)})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	L().Debug("console only")
	assert.Contains(t, console.String(), "console only")
}

func TestDefaultLogPaths_HonoursXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	paths := DefaultLogPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, filepath.Join(dir, "shovel", "shovel.log"), paths[0])
	assert.Equal(t, paths[0], ResolveLogPath())
}

func TestInit_StacktraceOnlyInFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "shovel.log")

	log, err := Init(Options{Level: "info", FilePath: path, Console: zapcore.AddSync(&console)})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	log.Error("compose failed")
	Sync()

	assert.Contains(t, console.String(), "compose failed")
	assert.NotContains(t, console.String(), "logger_test.go")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stacktrace":`)
}
