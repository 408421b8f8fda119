// Package logger writes diagnostic logs for linkcheck to stderr.
//
// Warnings are always written unless the logger is silenced. Debug and
// info output only appears with --verbose, where it traces discovery,
// analysis and external verification.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the minimum severity that gets written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelSilent
)

var (
	mu     sync.RWMutex
	level  Level     = LevelWarn
	output io.Writer = os.Stderr
)

// SetVerbose lowers the threshold to debug, or restores the default.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelWarn)
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level == LevelDebug
}

// SetLevel sets the minimum level written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput sets the log destination. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l Level, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug logs a trace message.
func Debug(format string, args ...any) {
	logf(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs progress.
func Info(format string, args ...any) {
	logf(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs a recoverable problem, such as an unreadable file.
func Warn(format string, args ...any) {
	logf(LevelWarn, "[WARN] ", format, args...)
}

// Section prints a header between phases in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if level == LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
