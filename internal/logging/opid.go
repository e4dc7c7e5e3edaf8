package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type opIDKey struct{}

// NewOperationID returns a random operation identifier.
func NewOperationID() string {
	return uuid.NewString()
}

// ContextWithOperationID returns ctx carrying id.
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, opIDKey{}, id)
}

// OperationIDFromContext returns the id stored by ContextWithOperationID,
// or "" when there is none.
func OperationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(opIDKey{}).(string)
	return id
}

// WithContext tags lines with the operation id carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := OperationIDFromContext(ctx); id != "" {
		return l.with(slog.String("op_id", id))
	}
	return l
}
