package audit

import (
	"context"
	"log/slog"
)

// Logger emits a structured log line for every invocation and persists it
// when a store is configured. A nil store disables persistence so the bridge
// runs without Postgres.
type Logger struct {
	store *Store
	log   *slog.Logger
}

// NewLogger creates an audit logger. store may be nil.
func NewLogger(store *Store, log *slog.Logger) *Logger {
	return &Logger{store: store, log: log}
}

// RecordInvocation logs and (best-effort) persists the record. Persistence
// failures are logged, never propagated: auditing must not fail the call.
func (l *Logger) RecordInvocation(ctx context.Context, rec Record) {
	l.log.InfoContext(ctx, "tool invocation",
		"event_id", rec.EventID,
		"caller_id", rec.CallerID,
		"instance_id", rec.InstanceID,
		"tool", rec.Tool,
		"model", rec.Model,
		"status", rec.Status,
		"error_kind", rec.ErrorKind,
		"duration_ms", rec.DurationMS,
	)
	if l.store == nil {
		return
	}
	if err := l.store.RecordInvocation(ctx, rec); err != nil {
		l.log.ErrorContext(ctx, "audit record failed", "event_id", rec.EventID, "error", err)
	}
}
