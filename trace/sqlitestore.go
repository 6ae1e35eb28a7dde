package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/windrun-ai/workflowcore/core"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore persists spans to a SQLite database in WAL mode: open, set
// the journal mode pragma, then bootstrap the embedded schema.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed trace store at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("trace: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace: set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertSpan(ctx context.Context, span core.NodeSpan) error {
	envJSON, err := json.Marshal(span.Environment)
	if err != nil {
		return fmt.Errorf("trace: marshal environment: %w", err)
	}
	var endedAt any
	if !span.EndedAt.IsZero() {
		endedAt = span.EndedAt.Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO spans (span_id, execution_id, node_id, tool_ref, attempt, input, output, config,
		                     started_at, ended_at, duration_ms, status, error, cache_hit, environment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(span_id) DO UPDATE SET
		   output = excluded.output, ended_at = excluded.ended_at, duration_ms = excluded.duration_ms,
		   status = excluded.status, error = excluded.error, cache_hit = excluded.cache_hit`,
		span.SpanID, span.ExecutionID, span.NodeID, span.ToolRef, span.Attempt,
		span.Input, span.Output, span.Config,
		span.StartedAt.Format(time.RFC3339Nano), endedAt, span.DurationMS,
		string(span.Status), span.Error, span.CacheHit, string(envJSON),
	)
	if err != nil {
		return fmt.Errorf("trace: insert span: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QuerySpansByExecution(ctx context.Context, executionID string) ([]core.NodeSpan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT span_id, execution_id, node_id, tool_ref, attempt, input, output, config,
		        started_at, ended_at, duration_ms, status, error, cache_hit, environment
		 FROM spans WHERE execution_id = ? ORDER BY started_at ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("trace: query spans: %w", err)
	}
	defer rows.Close()
	return scanSpans(rows)
}

func (s *SQLiteStore) QuerySpan(ctx context.Context, spanID string) (core.NodeSpan, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT span_id, execution_id, node_id, tool_ref, attempt, input, output, config,
		        started_at, ended_at, duration_ms, status, error, cache_hit, environment
		 FROM spans WHERE span_id = ?`, spanID)
	if err != nil {
		return core.NodeSpan{}, false, fmt.Errorf("trace: query span: %w", err)
	}
	defer rows.Close()
	spans, err := scanSpans(rows)
	if err != nil {
		return core.NodeSpan{}, false, err
	}
	if len(spans) == 0 {
		return core.NodeSpan{}, false, nil
	}
	return spans[0], true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSpans(rows *sql.Rows) ([]core.NodeSpan, error) {
	var spans []core.NodeSpan
	for rows.Next() {
		var (
			span        core.NodeSpan
			status      string
			startedAt   string
			endedAt     sql.NullString
			environment string
		)
		if err := rows.Scan(
			&span.SpanID, &span.ExecutionID, &span.NodeID, &span.ToolRef, &span.Attempt,
			&span.Input, &span.Output, &span.Config,
			&startedAt, &endedAt, &span.DurationMS, &status, &span.Error, &span.CacheHit, &environment,
		); err != nil {
			return nil, fmt.Errorf("trace: scan span: %w", err)
		}
		span.Status = core.ExecutionStatus(status)
		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("trace: parse started_at %q: %w", startedAt, err)
		}
		span.StartedAt = t
		if endedAt.Valid && endedAt.String != "" {
			t, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("trace: parse ended_at %q: %w", endedAt.String, err)
			}
			span.EndedAt = t
		}
		if environment != "" && environment != "null" {
			if err := json.Unmarshal([]byte(environment), &span.Environment); err != nil {
				return nil, fmt.Errorf("trace: unmarshal environment: %w", err)
			}
		}
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
