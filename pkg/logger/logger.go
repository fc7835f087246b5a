// Package logger provides the application's structured logger built on
// log/slog.
//
// Handlers and services log through WithCtx so that every line carries the
// request_id injected by the HTTP middleware:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order created", "order_id", order.ID.Hex())
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newConsoleHandler(os.Stdout))
	slog.SetDefault(L)
}

func level() slog.Level {
	switch strings.ToLower(config.LogLevel()) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if config.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// newConsoleHandler returns JSON in production (for log aggregators) and
// human-readable text everywhere else.
func newConsoleHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level()}
	if config.IsProduction() {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Attach adds extra sinks (e.g. a MongoHandler) next to the console output
// and makes the result the process-wide default.
func Attach(extra ...slog.Handler) {
	if len(extra) == 0 {
		return
	}
	hs := append([]slog.Handler{newConsoleHandler(os.Stdout)}, extra...)
	L = slog.New(NewMultiHandler(hs...))
	slog.SetDefault(L)
}

// ─── Context-aware logger ─────────────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored in ctx by the Logger
// middleware, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─── Short-hand helpers (base logger) ─────────────────────────────────────────

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
