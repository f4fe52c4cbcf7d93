package util

import (
	"sync"
)

var (
	globalLogger LoggerInterface
	loggerOnce   sync.Once

	fallbackLogger LoggerInterface
	fallbackOnce   sync.Once
)

// InitLogger wires the process-wide logger. The first call wins; later calls
// are no-ops, so a subcommand cannot re-route logs mid-run.
func InitLogger(logLevel, logFile string, debugToConsole bool) {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(logLevel, logFile, debugToConsole)
	})
}

// active returns the wired logger. Code that logs before InitLogger ran
// (early startup, tests) gets a stderr logger that only passes warnings and
// errors through.
func active() LoggerInterface {
	if globalLogger != nil {
		return globalLogger
	}
	fallbackOnce.Do(func() {
		fallbackLogger = NewLogger("warn", "", false)
	})
	return fallbackLogger
}

// Package-level logging helpers; every call site goes through these rather
// than holding a logger.

func LogDebug(msg string)                          { active().Debug(msg) }
func LogDebugf(format string, args ...interface{}) { active().Debugf(format, args...) }
func LogInfo(msg string)                           { active().Info(msg) }
func LogInfof(format string, args ...interface{})  { active().Infof(format, args...) }
func LogWarn(msg string)                           { active().Warn(msg) }
func LogWarnf(format string, args ...interface{})  { active().Warnf(format, args...) }
func LogError(msg string)                          { active().Error(msg) }
func LogErrorf(format string, args ...interface{}) { active().Errorf(format, args...) }
