// Package logger provides the process-wide structured logger. All output
// goes to stderr: stdout is reserved for the credential-process JSON
// contract and the logger must never contaminate it.
package logger

import (
	"os"
	"strings"
	"sync/atomic"

	charm "github.com/charmbracelet/log"
)

// DebugEnv enables debug logging when set to 1/true/yes.
const DebugEnv = "CCWB_AUTH_DEBUG"

// defaultLogger is the global logger instance stored atomically.
var defaultLogger atomic.Value

func init() {
	l := charm.New(os.Stderr)
	l.SetReportTimestamp(false)
	if debugEnabled() {
		l.SetLevel(charm.DebugLevel)
	}
	defaultLogger.Store(l)
}

func debugEnabled() bool {
	switch strings.ToLower(os.Getenv(DebugEnv)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Default returns the global logger instance.
func Default() *charm.Logger {
	return defaultLogger.Load().(*charm.Logger)
}

// SetDefault replaces the global logger instance.
func SetDefault(l *charm.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Debug logs a debug message with key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Default().Debug(msg, keyvals...)
}

// Info logs an info message with key-value pairs.
func Info(msg interface{}, keyvals ...interface{}) {
	Default().Info(msg, keyvals...)
}

// Warn logs a warning message with key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Default().Warn(msg, keyvals...)
}

// Error logs an error message with key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Default().Error(msg, keyvals...)
}
