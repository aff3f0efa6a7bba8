package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

// SlogManager is a [slog.Handler] fanning out records to a mutable set of
// named handlers. Handlers can join and leave while the manager is in use,
// late joiners receive the attributes and groups accumulated so far.
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new [SlogManager].
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

// Enabled reports whether any of the contained handlers wants the level.
func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle passes the record to all contained handlers.
func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		_ = h.Handle(ctx, r)
	}

	return nil
}

// WithAttrs returns a new manager with the attributes applied to all
// contained handlers.
func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.Lock()
	defer m.Unlock()

	groups := make([]string, len(m.groups))
	copy(groups, m.groups)

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append(m.attrs, attrs...),
		groups:   groups,
	}

	for name, h := range m.handlers {
		newLm.handlers[name] = h.WithAttrs(attrs)
	}

	return newLm
}

// WithGroup returns a new manager with the group applied to all contained
// handlers.
func (m *SlogManager) WithGroup(name string) slog.Handler {
	m.Lock()
	defer m.Unlock()

	attrs := make([]slog.Attr, len(m.attrs))
	copy(attrs, m.attrs)

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    attrs,
		groups:   append(m.groups, name),
	}

	for handlerName, h := range m.handlers {
		newLm.handlers[handlerName] = h.WithGroup(name)
	}

	return newLm
}

// AddHandler adds a named handler to the manager, replacing any previous
// handler of that name. Accumulated attributes and groups are applied first.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	for _, attr := range m.attrs {
		h = h.WithAttrs([]slog.Attr{attr})
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

// RemoveHandler removes a named handler from the manager.
func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}

// parseLogLevel maps a level name onto a [slog.Level], unknown and empty
// names defaulting to [slog.LevelInfo].
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newTerminalHandler returns a colorized [slog.Handler] writing to w.
func newTerminalHandler(w io.Writer, level string) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      parseLogLevel(level),
		TimeFormat: time.Kitchen,
	})
}

// setupLogging (re-)establishes the process-wide logging: a terminal handler
// on standard error and, with a non-empty logFile, a rotating JSON file
// handler alongside it.
func setupLogging(level string, logFile string) error {
	logManager.AddHandler("terminal", newTerminalHandler(os.Stderr, level))

	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
				return fmt.Errorf("(cmd-logging) %w", err)
			}
		}

		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		}

		logManager.AddHandler("file", slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level: parseLogLevel(level),
		}))
	}

	slog.SetDefault(slog.New(logManager))

	return nil
}
