// Package audit persists a log of bridge tool invocations in Postgres. The
// log is diagnostic: writes are best-effort and never fail the call path.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one tool invocation as seen at the bridge surface.
type Record struct {
	EventID    string    `json:"event_id"`
	CallerID   string    `json:"caller_id,omitempty"`
	InstanceID string    `json:"instance_id"`
	Tool       string    `json:"tool"`
	Model      string    `json:"model,omitempty"`
	Method     string    `json:"method,omitempty"`
	Status     string    `json:"status"` // "success" | "error"
	ErrorKind  string    `json:"error_kind,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	ReceivedAt time.Time `json:"received_at"`
}

// Store persists invocation records using a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an audit store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the invocation table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tool_invocations (
			event_id    TEXT PRIMARY KEY,
			caller_id   TEXT NOT NULL DEFAULT '',
			instance_id TEXT NOT NULL,
			tool        TEXT NOT NULL,
			model       TEXT NOT NULL DEFAULT '',
			method      TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			error_kind  TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("audit.EnsureSchema: %w", err)
	}
	return nil
}

// RecordInvocation inserts one invocation row.
func (s *Store) RecordInvocation(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tool_invocations (
			event_id, caller_id, instance_id, tool, model, method,
			status, error_kind, duration_ms, received_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.EventID, rec.CallerID, rec.InstanceID, rec.Tool, rec.Model, rec.Method,
		rec.Status, rec.ErrorKind, rec.DurationMS, rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("audit.RecordInvocation insert: %w", err)
	}
	return nil
}

// RecentInvocations returns the newest rows for an instance, newest first.
func (s *Store) RecentInvocations(ctx context.Context, instanceID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, caller_id, instance_id, tool, model, method,
		       status, error_kind, duration_ms, received_at
		FROM tool_invocations
		WHERE instance_id = $1
		ORDER BY received_at DESC
		LIMIT $2`, instanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit.RecentInvocations query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.EventID, &rec.CallerID, &rec.InstanceID, &rec.Tool, &rec.Model, &rec.Method,
			&rec.Status, &rec.ErrorKind, &rec.DurationMS, &rec.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("audit.RecentInvocations scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit.RecentInvocations rows: %w", err)
	}
	return out, nil
}
