// Package log wraps clog so that call sites log through the logger carried
// in the context.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	slogmulti "github.com/samber/slog-multi"
)

// Info, Debug, Warn and Error log through the context's logger and report
// the caller's source position rather than this package's.
func Info(ctx context.Context, msg string, args ...any)  { emit(ctx, slog.LevelInfo, msg, args) }
func Debug(ctx context.Context, msg string, args ...any) { emit(ctx, slog.LevelDebug, msg, args) }
func Warn(ctx context.Context, msg string, args ...any)  { emit(ctx, slog.LevelWarn, msg, args) }
func Error(ctx context.Context, msg string, args ...any) { emit(ctx, slog.LevelError, msg, args) }

// With returns ctx carrying a logger that adds args to every record.
func With(ctx context.Context, args ...any) context.Context {
	return clog.WithLogger(ctx, clog.FromContext(ctx).With(args...))
}

func emit(ctx context.Context, level slog.Level, msg string, args []any) {
	h := clog.FromContext(ctx).Handler()
	if !h.Enabled(ctx, level) {
		return
	}

	// runtime.Callers, emit, the level helper.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = h.Handle(ctx, r)
}

// ParseLevel converts a --log-level value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q; valid values: debug, info, warn, error", s)
	}
}

// Setup installs a logger on ctx that writes human-readable records to
// console at level and, when file is non-nil, JSON records at debug level
// to file.
func Setup(ctx context.Context, console io.Writer, level slog.Level, file io.Writer) context.Context {
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	logger := clog.New(slogmulti.Fanout(handlers...))
	ctx = clog.WithLogger(ctx, logger)
	slog.SetDefault(&logger.Logger)
	return ctx
}
