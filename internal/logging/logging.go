// Package logging provides a small leveled wrapper over the standard
// library logger, gated by the LOG_LEVEL environment variable, in the
// same plain-log idiom the rest of this codebase uses.
package logging

import (
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled logger that writes through the standard library's
// log.Logger. A single process-wide instance is created by New and
// threaded through components that need it; nothing relies on a package
// global.
type Logger struct {
	level Level
	out   *log.Logger
}

// New builds a Logger from the LOG_LEVEL environment variable, matching
// the CLI contract in the service's operating document.
func New() *Logger {
	return &Logger{
		level: parseLevel(os.Getenv("LOG_LEVEL")),
		out:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.out.Printf(prefix+" "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "[DEBUG]", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "[INFO]", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "[WARN]", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "[ERROR]", format, args...) }
