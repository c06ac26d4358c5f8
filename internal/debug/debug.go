// Package debug provides gated diagnostic logging for the resolution engine.
// Output is off unless enabled at build time or through the DEBUG environment
// variable, and is always suppressed in MCP mode where stdout carries the
// protocol.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be flipped at build time:
// go build -ldflags "-X github.com/standardbeagle/cmi/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode reports whether the process is serving MCP over stdio. Set once by
// the mcp command before any logging happens.
var MCPMode = false

var (
	mu      sync.Mutex
	output  io.Writer // nil means discard
	logFile *os.File
)

// SetMCPMode suppresses all debug output so stdio stays protocol-clean.
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput routes debug output to w. Pass nil to discard.
func SetDebugOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitDebugLogFile redirects debug output to a timestamped file under the
// system temp directory and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "cmi-debug-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	logFile = f
	output = f
	return path, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	mu.Lock()
	defer mu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = nil
	return err
}

// IsDebugEnabled reports whether debug output is enabled. MCP mode always
// wins: protocol output must never be interleaved with diagnostics.
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log writes one debug line tagged with a component name.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogScan logs workspace scanning activity.
func LogScan(format string, args ...interface{}) {
	Log("SCAN", format, args...)
}

// LogResolve logs variable resolution activity.
func LogResolve(format string, args ...interface{}) {
	Log("RESOLVE", format, args...)
}

// LogWatch logs file watching activity.
func LogWatch(format string, args ...interface{}) {
	Log("WATCH", format, args...)
}

// LogMCP logs MCP server activity.
func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

// Fatal records a fatal condition and returns it as an error for the caller
// to propagate. In MCP mode nothing is written; the error still travels back
// through the protocol.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode {
		if w := writer(); w != nil {
			fmt.Fprintf(w, "[FATAL] %s", msg)
		}
	}
	return fmt.Errorf("fatal error: %s", msg)
}
