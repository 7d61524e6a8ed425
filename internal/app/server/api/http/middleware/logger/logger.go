package logger

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Logger пишет одну строку на запрос. Уровень выбирается по статусу ответа,
// успешные запросы к тихим путям (проверки здоровья) уходят в debug.
type Logger struct {
	log   *slog.Logger
	quiet map[string]struct{}
}

func New(log *slog.Logger, quietPaths ...string) *Logger {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &Logger{
		log:   log.With(slog.String("component", "http_logger")),
		quiet: quiet,
	}
}

func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		path := ctx.URL().Path

		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := l.level(path, status)
		if !l.log.Enabled(ctx.Context(), level) {
			return
		}

		attrs := []any{
			slog.String("method", ctx.Method()),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if op := ctx.Operation(); op != nil && op.OperationID != "" {
			attrs = append(attrs, slog.String("operation", op.OperationID))
		}
		l.log.Log(ctx.Context(), level, "HTTP request", attrs...)
	}
}

func (l *Logger) level(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	if _, ok := l.quiet[path]; ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
