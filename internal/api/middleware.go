package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/powerled/internal/logging"
)

// HTTPLoggingMiddleware logs each request at a level derived from its status.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	}

	level := slog.LevelDebug
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logging.GetLogger("api").LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}
