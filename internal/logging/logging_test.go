package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2023, 4, 5, 10, 14, 59, 0, time.UTC)
	got := LogFilePath("logs", "trialviz", start)
	assert.Equal(t, filepath.Join("logs", "trialviz.20230405_101459.log"), got)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSetup_FileReceivesLogs(t *testing.T) {
	var fileBuf bytes.Buffer
	m := NewManager()
	require.NoError(t, m.Setup(&fileBuf, "info", "", nil))

	m.Logger().Info("hello file")
	assert.Contains(t, fileBuf.String(), "hello file")
}

func TestSetup_InfoLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	require.NoError(t, m.Setup(&buf, "info", "", nil))

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	require.NoError(t, m.Setup(&buf, "debug", "", nil))

	m.Logger().Debug("debug msg")
	assert.Contains(t, buf.String(), "debug msg")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewManager()

	require.NoError(t, m.Setup(&buf1, "info", "", nil))
	m.Logger().Info("first")

	require.NoError(t, m.Setup(&buf2, "info", "", nil))
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second")
	assert.Contains(t, buf2.String(), "second")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just the non-nil path

	var buf bytes.Buffer
	m := NewManager()
	require.NoError(t, m.Setup(&buf, "info", "", provider))

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSetContextProvider_AttrsOnEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	require.NoError(t, m.Setup(&buf, "info", "", nil))

	m.Logger().Info("before provider")

	tick := 0
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("trial", "000123"),
			slog.Int("tick", tick),
		}
	})
	m.Logger().Info("streaming")
	tick = 7
	m.Logger().Info("advanced")

	m.SetContextProvider(nil)
	m.Logger().Info("detached")

	output := buf.String()
	assert.Contains(t, output, "streaming")
	assert.Contains(t, output, "trial=000123")
	assert.Contains(t, output, "tick=0")
	assert.Contains(t, output, "tick=7")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	assert.NotContains(t, lines[1], "trial=", "no context before the provider is set")
	assert.NotContains(t, lines[len(lines)-1], "trial=", "no context after detaching")
}

func TestSetup_BadGelfAddrFails(t *testing.T) {
	m := NewManager()
	err := m.Setup(nil, "info", "not a host:port", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graylog")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Flush(context.Background()))
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(h1, h2))
	logger.Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_FiltersNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(nil, h, nil)
	require.Len(t, multi.handlers, 1)

	slog.New(multi).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewMultiHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

	empty := NewMultiHandler()
	assert.False(t, empty.Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	multi := NewMultiHandler(h)

	logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "scene")}).WithGroup("grp"))
	logger.Info("annotated", "key", "val")

	assert.Contains(t, buf.String(), "component=scene")
	assert.Contains(t, buf.String(), "grp.key=val")

	assert.Equal(t, multi, multi.WithGroup(""), "empty group name should return same handler")
}

// errorHandler always fails Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	// First handler errors, the spy should still receive the record.
	logger := slog.New(NewMultiHandler(&errorHandler{}, spy))
	logger.Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")
}

func TestContextHandler_InjectsAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	trialNumber := "000123"
	h := NewContextHandler(inner, func() []slog.Attr {
		return []slog.Attr{slog.String("trial", trialNumber)}
	})

	logger := slog.New(h)
	logger.Info("loaded")
	trialNumber = "000124"
	logger.Info("reloaded")

	output := buf.String()
	assert.Contains(t, output, "trial=000123")
	assert.Contains(t, output, "trial=000124")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	logger := slog.New(NewContextHandler(inner, nil))
	logger.Info("plain")
	assert.Contains(t, buf.String(), "plain")
}
