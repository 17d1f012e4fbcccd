// Package journal persists a provenance record of every external program
// invocation to SQLite. The record answers "which programs, with which
// arguments, produced this output" after a pipeline run has finished and
// its intermediates are gone.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/openmni/mnipipe/pkg/runner"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// startedAtLayout is fixed-width so that ORDER BY on the stored text matches
// chronological order. RFC3339Nano would drop trailing fractional zeros and
// break lexicographic ordering within a second.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal records invocations in a SQLite database.
type Journal struct {
	db   *sql.DB
	path string
}

// Config holds journal configuration.
type Config struct {
	// Path is the SQLite database file, or ":memory:" for tests.
	Path string
}

// New creates a Journal. Call Init before recording.
func New(cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal database path is required")
	}
	return &Journal{path: cfg.Path}, nil
}

// Init opens the database and applies pragmas suited to a single-writer
// local journal.
func (j *Journal) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", j.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping journal database: %w", err)
	}

	j.db = db
	return nil
}

// Migrate applies the embedded schema migrations.
func (j *Journal) Migrate(_ context.Context) error {
	if j.db == nil {
		return fmt.Errorf("journal not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(j.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (j *Journal) HealthCheck(ctx context.Context) error {
	if j.db == nil {
		return fmt.Errorf("journal not initialized")
	}
	return j.db.PingContext(ctx)
}

// Record stores one invocation. It satisfies runner.Recorder.
func (j *Journal) Record(ctx context.Context, inv runner.Invocation) error {
	if j.db == nil {
		return fmt.Errorf("journal not initialized")
	}

	args, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("failed to encode invocation args: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO invocations (id, run_id, program, args, output_path, exit_code, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		inv.RunID,
		inv.Program,
		string(args),
		inv.OutputPath,
		inv.ExitCode,
		inv.Error,
		inv.Duration.Milliseconds(),
		inv.StartedAt.UTC().Format(startedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Entry is one stored invocation record.
type Entry struct {
	ID         string
	RunID      string
	Program    string
	Args       []string
	OutputPath string
	ExitCode   int
	Error      string
	DurationMS int64
	StartedAt  time.Time
}

// Recent returns the most recent invocations, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, program, args, output_path, exit_code, error, duration_ms, started_at
		FROM invocations
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			argsJSON  string
			startedAt string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Program, &argsJSON, &e.OutputPath,
			&e.ExitCode, &e.Error, &e.DurationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
			return nil, fmt.Errorf("failed to decode invocation args: %w", err)
		}
		if t, err := time.Parse(startedAtLayout, startedAt); err == nil {
			e.StartedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
