package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LegacyLogger prints "[LEVEL] msg args" lines with fmt. It is the fallback
// selected by LegacyEnv.
type LegacyLogger struct {
	mu     *sync.RWMutex
	level  *Level
	out    io.Writer
	fields []any
}

// NewLegacyLogger creates a legacy logger writing to stderr at info level
func NewLegacyLogger() *LegacyLogger {
	return NewLegacyLoggerTo(os.Stderr)
}

// NewLegacyLoggerTo creates a legacy logger writing to w
func NewLegacyLoggerTo(w io.Writer) *LegacyLogger {
	level := LevelInfo
	return &LegacyLogger{
		mu:    &sync.RWMutex{},
		level: &level,
		out:   w,
	}
}

// SetLevel sets the minimum level; children share it
func (l *LegacyLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

func (l *LegacyLogger) log(level Level, tag, msg string, args []any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < *l.level {
		return
	}

	all := append(append([]any{}, l.fields...), args...)
	if len(all) == 0 {
		fmt.Fprintf(l.out, "[%s] %s\n", tag, msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s %v\n", tag, msg, all)
}

func (l *LegacyLogger) Debug(msg string, args ...any) { l.log(LevelDebug, "DEBUG", msg, args) }
func (l *LegacyLogger) Info(msg string, args ...any)  { l.log(LevelInfo, "INFO", msg, args) }
func (l *LegacyLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, "WARN", msg, args) }
func (l *LegacyLogger) Error(msg string, args ...any) { l.log(LevelError, "ERROR", msg, args) }

// With returns a child that prefixes args to every record
func (l *LegacyLogger) With(args ...any) Logger {
	return &LegacyLogger{
		mu:     l.mu,
		level:  l.level,
		out:    l.out,
		fields: append(append([]any{}, l.fields...), args...),
	}
}

func (l *LegacyLogger) Sync() error     { return nil }
func (l *LegacyLogger) Shutdown() error { return nil }
