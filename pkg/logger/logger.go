// Package logger provides component-scoped structured logging for picorelay.
//
// Call sites name the component that emits the record ("relay", "store",
// "telegram", ...) and attach fields as a map.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	mu       sync.RWMutex
	level    = new(slog.LevelVar)
	base     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	levelMap = map[LogLevel]slog.Level{
		DEBUG: slog.LevelDebug,
		INFO:  slog.LevelInfo,
		WARN:  slog.LevelWarn,
		ERROR: slog.LevelError,
	}
)

// SetLevel changes the minimum level for all components.
func SetLevel(l LogLevel) {
	level.Set(levelMap[l])
}

// ParseLevel maps a config string onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

// Configure swaps the output handler. format is "text" or "json".
func Configure(w io.Writer, format string) error {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}
	mu.Lock()
	base = slog.New(h)
	mu.Unlock()
	return nil
}

func logf(l slog.Level, component, msg string, fields map[string]any) {
	mu.RLock()
	lg := base
	mu.RUnlock()

	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, fields[k])
	}
	lg.Log(context.Background(), l, msg, attrs...)
}

func DebugC(component, msg string) { logf(slog.LevelDebug, component, msg, nil) }
func InfoC(component, msg string)  { logf(slog.LevelInfo, component, msg, nil) }
func WarnC(component, msg string)  { logf(slog.LevelWarn, component, msg, nil) }
func ErrorC(component, msg string) { logf(slog.LevelError, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) {
	logf(slog.LevelDebug, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]any) {
	logf(slog.LevelInfo, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]any) {
	logf(slog.LevelWarn, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]any) {
	logf(slog.LevelError, component, msg, fields)
}
