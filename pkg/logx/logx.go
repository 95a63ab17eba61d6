// Package logx provides structured logging with env-controlled debug domains.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped, component-prefixed log lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

// Level identifies a log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// debugSettings controls debug logging behavior. Domains is nil when all
// domains are enabled.
type debugSettings struct {
	Domains map[string]bool
	Enabled bool
}

//nolint:gochecknoglobals // Package-level debug configuration, set once from env
var (
	debugConfig debugSettings
	debugMutex  sync.RWMutex
)

//nolint:gochecknoinits // Required for env var initialization
func init() {
	initDebugFromEnv()
}

// initDebugFromEnv loads debug settings from DEBUG and DEBUG_DOMAINS.
//
//	DEBUG=1                              enable debug for all domains
//	DEBUG=1 DEBUG_DOMAINS=discovery,plan enable debug for listed domains only
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
	}

	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.Domains[strings.TrimSpace(domain)] = true
		}
	}
}

// NewLogger creates a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0), // stderr keeps stdout clean for CLI output
	}
}

// SetDebugEnabled overrides the env-derived debug flag.
func SetDebugEnabled(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Enabled = enabled
}

// SetDebugDomains restricts debug logging to the given domains. An empty
// list enables all domains.
func SetDebugDomains(domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if len(domains) == 0 {
		debugConfig.Domains = nil
		return
	}
	debugConfig.Domains = make(map[string]bool)
	for _, domain := range domains {
		debugConfig.Domains[strings.TrimSpace(domain)] = true
	}
}

// IsDebugEnabled reports whether debug logging is enabled at all.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain reports whether debug logging is enabled for a
// specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.component, level, message)
}

// Debug logs a debug message if debug logging is enabled for this
// component's domain.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledForDomain(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}
