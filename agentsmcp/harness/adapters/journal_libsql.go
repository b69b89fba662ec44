package adapters

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var journalMigrations embed.FS

// LibSQLJournal implements InvocationJournal on a libSQL database.
type LibSQLJournal struct {
	db *sql.DB
}

// OpenLibSQLJournal opens the database at url ("file:path" for a local file)
// and brings its schema up to date.
func OpenLibSQLJournal(ctx context.Context, url string) (*LibSQLJournal, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// One connection, so writes from concurrent dispatches are serialized
	db.SetMaxOpenConns(1)

	migrations, err := fs.Sub(journalMigrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectTurso, db, migrations)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run journal migrations: %w", err)
	}

	return NewLibSQLJournal(db), nil
}

// NewLibSQLJournal wraps an already migrated database.
func NewLibSQLJournal(db *sql.DB) *LibSQLJournal {
	return &LibSQLJournal{db: db}
}

// Record inserts rec. Recording the same id twice keeps the first row.
func (j *LibSQLJournal) Record(ctx context.Context, rec ports.InvocationRecord) error {
	query := `
		INSERT OR IGNORE INTO invocations (id, tool, operation, is_error, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	isError := 0
	if rec.IsError {
		isError = 1
	}
	_, err := j.db.ExecContext(ctx, query,
		rec.ID, rec.Tool, rec.Operation, isError, rec.Error,
		rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record invocation %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *LibSQLJournal) Recent(ctx context.Context, limit int) ([]ports.InvocationRecord, error) {
	query := `
		SELECT id, tool, operation, is_error, error, started_at, duration_ms
		FROM invocations
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var records []ports.InvocationRecord
	for rows.Next() {
		var (
			rec        ports.InvocationRecord
			isError    int64
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &rec.Operation, &isError, &rec.Error, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		rec.IsError = isError != 0
		rec.StartedAt = time.UnixMilli(startedAt)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return records, nil
}

// Close closes the database.
func (j *LibSQLJournal) Close() error {
	return j.db.Close()
}

// Ensure LibSQLJournal implements the InvocationJournal interface.
var _ ports.InvocationJournal = (*LibSQLJournal)(nil)
