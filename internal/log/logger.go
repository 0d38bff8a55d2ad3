// Package log provides a global logger with configurable logging level. Messages are written
// through a zap core so that tests and long-running tools can swap the destination.

package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anamolies that are not expected to occur during normal use.
	LevelWarning              // Logs anamolies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events.
	LevelDebug                // Logs detailed IO
)

var globalLogLevel Level
var logMutex sync.Mutex
var logger = zap.New(newConsoleCore()).Sugar()

func newConsoleCore() zapcore.Core {
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

func logLevel() Level {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel
}

// Enabled returns true if messages at level are currently written.
func Enabled(level Level) bool {
	return level != LevelNone && level <= logLevel()
}

// ParseLevel maps a level name (debug, info, warning, error, none) to a Level.
func ParseLevel(name string) (Level, bool) {
	switch name {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarning, true
	case "error":
		return LevelError, true
	case "none", "off":
		return LevelNone, true
	}
	return LevelNone, false
}

// ReplaceCore redirects all log output to core and returns a function that restores the previous
// destination.
func ReplaceCore(core zapcore.Core) func() {
	logMutex.Lock()
	defer logMutex.Unlock()
	previous := logger
	logger = zap.New(core).Sugar()
	return func() {
		logMutex.Lock()
		defer logMutex.Unlock()
		logger = previous
	}
}

func current() *zap.SugaredLogger {
	logMutex.Lock()
	defer logMutex.Unlock()
	return logger
}

// Sync flushes buffered output.
func Sync() {
	_ = current().Sync()
}

func Debug(format string, a ...interface{}) {
	if LevelDebug <= logLevel() {
		current().Debugf(format, a...)
	}
}
func Info(format string, a ...interface{}) {
	if LevelInfo <= logLevel() {
		current().Infof(format, a...)
	}
}
func Warning(format string, a ...interface{}) {
	if LevelWarning <= logLevel() {
		current().Warnf(format, a...)
	}
}
func Error(format string, a ...interface{}) {
	if LevelError <= logLevel() {
		current().Errorf(format, a...)
	}
}
