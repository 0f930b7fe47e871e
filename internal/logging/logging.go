// Package logging provides the bridge's process-wide structured logger.
//
// It wraps log/slog with a level that can be reconfigured at runtime
// (cmd/bridge calls Configure once at startup; a config reload does not
// call it again) and a colorized text handler for interactive use,
// matching JSON output for production log aggregation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Level mirrors slog.Level with bridge-specific defaults.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config controls logger construction.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel atomic.Int32

	mu      sync.RWMutex
	slogger *slog.Logger
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	slogger = slog.New(newColorTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}, isTerminal(os.Stdout.Fd())))
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return LevelDebug
	case "WARN", "warn", "WARNING", "warning":
		return LevelWarn
	case "ERROR", "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Configure (re)builds the global logger from cfg. Safe to call repeatedly,
// including from a config-reload handler.
func Configure(cfg Config) error {
	level := parseLevel(cfg.Level)
	currentLevel.Store(int32(level))

	var w io.Writer
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: level.toSlog()}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		useColor := false
		if f, ok := w.(*os.File); ok {
			useColor = isTerminal(f.Fd())
		}
		handler = newColorTextHandler(w, opts, useColor)
	}

	mu.Lock()
	slogger = slog.New(handler)
	mu.Unlock()
	return nil
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func Debug(msg string, args ...any) { logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { logger().Warn(msg, args...) }
func Error(msg string, args ...any) { logger().Error(msg, args...) }

// DebugContext etc. forward the context so a handler that reads trace/span
// attributes from it (e.g. via an otel-aware slog handler) keeps working.
func DebugContext(ctx context.Context, msg string, args ...any) { logger().DebugContext(ctx, msg, args...) }
func InfoContext(ctx context.Context, msg string, args ...any)  { logger().InfoContext(ctx, msg, args...) }
func WarnContext(ctx context.Context, msg string, args ...any)  { logger().WarnContext(ctx, msg, args...) }
func ErrorContext(ctx context.Context, msg string, args ...any) { logger().ErrorContext(ctx, msg, args...) }

// With returns a logger scoped with the given attributes, for call sites
// that log several related lines (e.g. a session's lifecycle) and want to
// avoid repeating "serial", "port_role" on every call.
func With(args ...any) *slog.Logger {
	return logger().With(args...)
}

// Standard structured field keys, shared across packages so log aggregation
// can query on a stable key set.
const (
	KeySerial      = "serial"
	KeyManufacturer = "manufacturer"
	KeyPortRole    = "port_role"
	KeyMessageType = "message_type"
	KeyTopic       = "topic"
	KeyTopicKind   = "topic_kind"
	KeyErr         = "err"
	KeyState       = "state"
	KeyAction      = "action"
)
