package logging

import (
	"context"
	"log/slog"
)

type loggingCtxKey struct{}

func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggingCtxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func ToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggingCtxKey{}, logger)
}
