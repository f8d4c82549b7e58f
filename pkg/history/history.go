// Package history keeps an audit trail of drag commits in PostgreSQL.
// It is optional: the planner runs without it when no database URL is
// configured.
package history

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwells-dev/careplanner/pkg/core/planner"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records reschedule outcomes in PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database and applies pending migrations
func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// runMigrations applies any embedded migration file not yet recorded in
// schema_migrations. Files run in lexical order, each in its own
// transaction together with its bookkeeping row.
func (s *Store) runMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	for _, name := range names {
		filename := path.Base(name)

		var applied bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`,
			filename,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", filename, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
	}

	return nil
}

// RecordReschedule persists one audit entry. Implements
// planner.HistoryRecorder.
func (s *Store) RecordReschedule(ctx context.Context, rec planner.RescheduleRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reschedule_history (schedule_id, day, old_start, old_end, new_start, new_end, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ScheduleID, rec.DayKey, rec.OldStart, rec.OldEnd, rec.NewStart, rec.NewEnd, rec.Outcome)
	if err != nil {
		return fmt.Errorf("failed to insert reschedule record: %w", err)
	}
	return nil
}

// Entry is one stored audit row
type Entry struct {
	ScheduleID string
	DayKey     string
	OldStart   string
	OldEnd     string
	NewStart   string
	NewEnd     string
	Outcome    string
	RecordedAt time.Time
}

// ListForSchedule returns the audit trail for one schedule, most recent
// first
func (s *Store) ListForSchedule(ctx context.Context, scheduleID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT schedule_id, day, old_start, old_end, new_start, new_end, outcome, recorded_at
		FROM reschedule_history
		WHERE schedule_id = $1
		ORDER BY recorded_at DESC
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reschedule history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ScheduleID, &e.DayKey, &e.OldStart, &e.OldEnd, &e.NewStart, &e.NewEnd, &e.Outcome, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reschedule entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reschedule history: %w", err)
	}

	return entries, nil
}
