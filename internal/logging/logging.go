// Package logging wires slog output to the console, a session log file,
// an optional Graylog endpoint, and an optional OTel log provider.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// LogFilePath builds a per-session log file path using OS-appropriate
// path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Manager owns the process-wide slog setup.
type Manager struct {
	logger *slog.Logger

	// OTel provider kept for flushing on shutdown.
	logProvider *sdklog.LoggerProvider

	ctxMu       sync.RWMutex
	ctxProvider ContextProvider
}

// NewManager creates an empty logging manager. Call Setup before use.
func NewManager() *Manager {
	return &Manager{}
}

// Setup initializes logging. The file writer and the Graylog address are
// optional; pass nil and "" to disable them. If provider is nil, OTel
// log export is disabled.
func (m *Manager) Setup(file io.Writer, level, gelfAddr string, provider *sdklog.LoggerProvider) error {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	if gelfAddr != "" {
		gelfHandler, err := NewGelfHandler(gelfAddr, handlerOpts)
		if err != nil {
			return fmt.Errorf("connecting to graylog at %s: %w", gelfAddr, err)
		}
		handlers = append(handlers, gelfHandler)
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("trialviz", otelslog.WithLoggerProvider(provider)))
	}

	m.logger = slog.New(NewContextHandler(NewMultiHandler(handlers...), m.contextAttrs))
	m.logger.Info("Logging initialized", "level", level)
	return nil
}

// SetContextProvider installs the source of dynamic attributes attached
// to every record, such as the currently loaded trial and tick. Pass
// nil to detach.
func (m *Manager) SetContextProvider(provider ContextProvider) {
	m.ctxMu.Lock()
	m.ctxProvider = provider
	m.ctxMu.Unlock()
}

func (m *Manager) contextAttrs() []slog.Attr {
	m.ctxMu.RLock()
	provider := m.ctxProvider
	m.ctxMu.RUnlock()
	if provider == nil {
		return nil
	}
	return provider()
}

// Logger returns the configured slog.Logger, or slog.Default if Setup
// has not been called.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if a provider is configured.
func (m *Manager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
