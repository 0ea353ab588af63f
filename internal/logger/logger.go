// Package logger provides the leveled, component-tagged logger used across
// the client. Output is plain text on stderr so library consumers can keep
// their own structured logging untouched.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level controls which messages are emitted.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// Logger is a leveled logger with a component tag.
type Logger struct {
	mu        sync.Mutex
	level     Level
	logger    *log.Logger
	component string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init sets up the default logger. Only the first call takes effect.
func Init(level Level, component string) {
	once.Do(func() {
		defaultLogger = &Logger{
			level:     level,
			logger:    log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
			component: component,
		}
	})
}

// GetLogger returns the default logger, initializing it at INFO if needed.
func GetLogger() *Logger {
	if defaultLogger == nil {
		Init(INFO, "apertus")
	}
	return defaultLogger
}

// WithComponent returns a logger that shares output and level but tags
// messages with the given component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		level:     l.level,
		logger:    l.logger,
		component: component,
	}
}

// SetLevel changes the logging level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[%s][%s] %s", levelNames[level], l.component, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}
