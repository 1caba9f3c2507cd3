package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
)

// SetupLogger installs the process-wide logger: text on stdout plus, when
// cfg.File is set, JSON lines into a rotating file.
func SetupLogger(cfg *config.LoggingConfig, serviceName string) (*slog.Logger, error) {
	return setupLogger(cfg, serviceName, os.Stdout)
}

// SetupLoggerTo is SetupLogger with the console handler writing to w; CLI
// commands log to stderr so their stdout stays machine readable.
func SetupLoggerTo(cfg *config.LoggingConfig, serviceName string, w io.Writer) (*slog.Logger, error) {
	return setupLogger(cfg, serviceName, w)
}

func setupLogger(cfg *config.LoggingConfig, serviceName string, stdout io.Writer) (*slog.Logger, error) {
	level := ParseLevel(cfg.Level)

	handlers := []slog.Handler{
		slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.File != "" {
		handlers = append(handlers, slog.NewJSONHandler(rotatingWriter(cfg), &slog.HandlerOptions{Level: level}))
	}

	logger := slog.New(&MultiHandler{handlers: handlers}).With("service", serviceName)
	slog.SetDefault(logger)

	return logger, nil
}

func rotatingWriter(cfg *config.LoggingConfig) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 5
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler отправляет логи в несколько handlers
type MultiHandler struct {
	handlers []slog.Handler
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var lastErr error
	for _, h := range m.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
