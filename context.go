package dagflow

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	LoggerContextKey ContextKey = "logger"
	StateContextKey  ContextKey = "state"
)

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// WithExecutionState attaches the execution's shared key-value state so that
// activities can read upstream step outputs and workflow inputs.
func WithExecutionState(ctx context.Context, state *ExecutionContext) context.Context {
	return context.WithValue(ctx, StateContextKey, state)
}

func GetLoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(LoggerContextKey).(*slog.Logger)
	return logger, ok
}

func GetExecutionStateFromContext(ctx context.Context) (*ExecutionContext, bool) {
	state, ok := ctx.Value(StateContextKey).(*ExecutionContext)
	return state, ok
}
