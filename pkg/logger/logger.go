/* pkg/logger/logger.go */

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop()

// Options controls logger construction.
type Options struct {
	// Level is one of TRACE, DEBUG, INFO, WARN, ERROR. Empty falls back to $LOG_LEVEL.
	Level string
	// FilePath receives JSON logs in addition to the console. Empty resolves a
	// default path; "-" disables the file sink.
	FilePath string
	// Console is where human-readable logs go. Nil means stderr.
	Console zapcore.WriteSyncer
}

// Init builds the process logger, installs it as the zap and otelzap global,
// and returns it. Console output stays on stderr so stdout carries only the
// operator-facing summary lines.
func Init(opts Options) (*zap.Logger, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	level := ParseLogLevel(levelName)

	console := opts.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()), console, level),
	}

	var fileErr error
	path := opts.FilePath
	if path == "" {
		path = ResolveLogPath()
	}
	if path != "" && path != "-" {
		writer, err := GetLogFileWriter(path)
		if err != nil {
			fileErr = err
		} else {
			jsonCfg := zap.NewProductionEncoderConfig()
			jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, zapcore.DebugLevel))
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(log)
	otelzap.ReplaceGlobals(otelzap.New(log))

	if fileErr != nil {
		log.Warn("Log file unavailable, logging to console only", zap.String("path", path), zap.Error(fileErr))
	} else {
		log.Debug("Logger initialized", zap.String("log_level", level.String()), zap.String("log_path", path))
	}
	return log, nil
}

// L returns the process logger. It is a no-op logger until Init runs.
func L() *zap.Logger {
	return log
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = log.Sync()
}

// ParseLogLevel maps a case-insensitive level name onto a zap level.
func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// DefaultConsoleEncoderConfig is the terse console layout.
func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = ""
	cfg.MessageKey = "M"
	// stack traces go to the file sink only
	cfg.StacktraceKey = ""
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// ResolveLogPath returns the first writable candidate, or "" if none is.
func ResolveLogPath() string {
	for _, path := range DefaultLogPaths() {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			continue
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return path
		}
	}
	return ""
}

// DefaultLogPaths lists log file candidates in order of preference.
func DefaultLogPaths() []string {
	var paths []string
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		paths = append(paths, filepath.Join(state, "shovel", "shovel.log"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "state", "shovel", "shovel.log"))
	}
	return append(paths, filepath.Join(os.TempDir(), "shovel", "shovel.log"))
}

// GetLogFileWriter opens path for appending, creating parent directories.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}
