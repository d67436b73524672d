// Package utils carries small cross-cutting helpers, chiefly the component
// file logger the engine threads through its services.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
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

func (l Level) tag() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// sink is the shared append target. All component loggers write through the
// one sink so lines interleave in timestamp order within the process.
type sink struct {
	mu    sync.Mutex
	file  *os.File
	level Level
}

var (
	sharedSink *sink
	sinkOnce   sync.Once
)

func defaultSink() *sink {
	sinkOnce.Do(func() {
		sharedSink = &sink{level: LevelInfo}
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		f, err := os.OpenFile(filepath.Join(home, "otto-debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		sharedSink.file = f
	})
	return sharedSink
}

// SetGlobalLevel sets the minimum severity written by every component logger.
func SetGlobalLevel(level Level) {
	s := defaultSink()
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

func (s *sink) emit(level Level, component, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil || level < s.level {
		return
	}
	stamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(s.file, "%s [%s] [%s] %s\n", stamp, level.tag(), component, fmt.Sprintf(format, args...))
}

// Logger writes leveled lines for one named component.
type Logger struct {
	component string
	out       *sink
}

// NewComponentLogger returns a logger tagged with the component name,
// writing to the shared otto-debug.log file in the user's home directory.
func NewComponentLogger(component string) *Logger {
	return &Logger{component: component, out: defaultSink()}
}

func (l *Logger) Debug(format string, args ...any) { l.out.emit(LevelDebug, l.component, format, args...) }
func (l *Logger) Info(format string, args ...any) { l.out.emit(LevelInfo, l.component, format, args...) }
func (l *Logger) Warn(format string, args ...any) { l.out.emit(LevelWarn, l.component, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.out.emit(LevelError, l.component, format, args...) }
