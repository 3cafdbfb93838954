// Package logger is the codec's leveled logger. It keeps a printf-style API
// and writes through zerolog, as JSON lines or as console text.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging level.
type Level int

// Log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", ""}

var zerologLevels = [...]zerolog.Level{
	zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel, zerolog.Disabled,
}

func (l Level) String() string {
	if l < LevelDebug || l > LevelNone {
		return ""
	}
	return levelNames[l]
}

func (l Level) zerolog() zerolog.Level {
	if l < LevelDebug || l > LevelNone {
		return zerolog.Disabled
	}
	return zerologLevels[l]
}

var levelsByName = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"none":    LevelNone,
	"off":     LevelNone,
}

// ParseLevel converts a level name such as "debug" or "none" into a Level,
// ignoring case. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	if l, ok := levelsByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return LevelInfo
}

// Logger writes leveled messages. Loggers derived with With share the
// output of their parent but carry extra fields.
type Logger struct {
	mu     sync.RWMutex
	out    io.Writer
	level  Level
	fields map[string]any
	zl     zerolog.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewConsole(os.Stderr, LevelInfo)
)

// Default returns the package-level logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// New creates a logger writing JSON lines to output.
func New(output io.Writer, level Level) *Logger {
	l := &Logger{out: output, level: level}
	l.rebuild()
	return l
}

// NewConsole creates a logger writing human-readable lines to output.
func NewConsole(output io.Writer, level Level) *Logger {
	return New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}, level)
}

// rebuild recreates the zerolog logger; l.mu must be held or l unshared.
func (l *Logger) rebuild() {
	ctx := zerolog.New(l.out).Level(l.level.zerolog()).With().Timestamp().Str("component", "hl7v2")
	if len(l.fields) > 0 {
		ctx = ctx.Fields(l.fields)
	}
	l.zl = ctx.Logger()
}

// With returns a child logger that adds key=value to every entry.
func (l *Logger) With(key string, value any) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	child := &Logger{out: l.out, level: l.level, fields: fields}
	child.rebuild()
	return child
}

// Zerolog returns the underlying zerolog logger for structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

// Level returns the current level.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// SetOutput sets the output writer. Output is written as JSON lines.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.rebuild()
}

func (l *Logger) event(level Level) *zerolog.Event {
	l.mu.RLock()
	zl := l.zl
	l.mu.RUnlock()
	// zl drops events below its level.
	return zl.WithLevel(level.zerolog())
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) { l.event(LevelDebug).Msgf(format, args...) }

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) { l.event(LevelInfo).Msgf(format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) { l.event(LevelWarn).Msgf(format, args...) }

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) { l.event(LevelError).Msgf(format, args...) }

// Debug logs through the default logger.
func Debug(format string, args ...any) { Default().Debug(format, args...) }

// Info logs through the default logger.
func Info(format string, args ...any) { Default().Info(format, args...) }

// Warn logs through the default logger.
func Warn(format string, args ...any) { Default().Warn(format, args...) }

// Error logs through the default logger.
func Error(format string, args ...any) { Default().Error(format, args...) }

// SetLevel sets the level of the default logger.
func SetLevel(level Level) { Default().SetLevel(level) }

// SetOutput sets the output of the default logger.
func SetOutput(w io.Writer) { Default().SetOutput(w) }
