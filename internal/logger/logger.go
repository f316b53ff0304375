// Package logger provides a simple logging interface for fleetwatch components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// DebugEnv is the environment variable that enables debug output. Any value
// enables it everywhere; a comma-separated list of components ("stream,poller")
// limits it to those components.
const DebugEnv = "FLEETWATCH_DEBUG"

// Components that log through For.
const (
	ComponentFleet     = "fleet"
	ComponentStream    = "stream"
	ComponentPoller    = "poller"
	ComponentPrefs     = "prefs"
	ComponentDashboard = "dashboard"
)

// Components lists every known component.
var Components = []string{ComponentFleet, ComponentStream, ComponentPoller, ComponentPrefs, ComponentDashboard}

var components = struct {
	mu      sync.Mutex
	loggers map[string]Logger
}{loggers: make(map[string]Logger)}

// For returns the shared logger for component, prefixed "[component]".
func For(component string) Logger {
	components.mu.Lock()
	defer components.mu.Unlock()
	if l, ok := components.loggers[component]; ok {
		return l
	}
	l := &envLogger{prefix: "[" + component + "]", component: component}
	components.loggers[component] = l
	return l
}

// DebugEnabled reports whether DebugEnv turns on debug output for component.
// An empty component matches any non-empty value.
func DebugEnabled(component string) bool {
	v := strings.TrimSpace(os.Getenv(DebugEnv))
	if v == "" {
		return false
	}
	if component == "" || !namesComponents(v) {
		return true
	}
	for _, name := range strings.Split(v, ",") {
		if strings.TrimSpace(name) == component {
			return true
		}
	}
	return false
}

// namesComponents reports whether v is a list of known component names
// rather than a plain switch like "1" or "true".
func namesComponents(v string) bool {
	for _, name := range strings.Split(v, ",") {
		name = strings.TrimSpace(name)
		known := false
		for _, c := range Components {
			if c == name {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger implements Logger on top of the standard log package.
// Debug messages are only printed when FLEETWATCH_DEBUG enables the component.
type envLogger struct {
	prefix    string
	component string
}

// NewEnvLogger creates a logger that respects the FLEETWATCH_DEBUG environment variable.
// The prefix is prepended to all log messages (e.g., "[stream]" or "[poller]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if DebugEnabled(l.component) {
		log.Printf(l.prefix+" "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// It is safe for concurrent use; stream and poller goroutines log through it in tests.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) record(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.record("debug", format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.record("info", format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.record("warn", format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.record("error", format, args...)
}

// Messages returns a copy of the captured messages.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

// defaultLogger is the package-level default logger.
var defaultLogger = NewEnvLogger("")

// Default returns the default logger for the package.
func Default() Logger {
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultLogger = l
}
