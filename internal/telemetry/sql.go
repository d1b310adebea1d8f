package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("telemetry sink closed")

// SQLSink stores events in the unknown_type_events table of a SQLite or
// Postgres database.
type SQLSink struct {
	db       *sql.DB
	driver   string
	insert   string
	recorded int
}

// OpenSQL opens the database named by dsn. postgres:// and postgresql://
// DSNs use lib/pq; anything else is handed to the SQLite driver, so plain
// paths and file: URIs both work.
func OpenSQL(dsn string) (*SQLSink, error) {
	driver := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry database: %w", err)
	}
	if driver == "sqlite" {
		// an in-memory database lives only as long as its connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to telemetry database: %w", err)
	}

	s := &SQLSink{db: db, driver: driver, insert: insertQuery(driver)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init telemetry schema: %w", err)
	}
	return s, nil
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func insertQuery(driver string) string {
	cols := "run_id, name, func_name, file, line, col, reason, expected_type"
	if driver == "postgres" {
		return "INSERT INTO unknown_type_events (" + cols + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	}
	return "INSERT INTO unknown_type_events (" + cols + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
}

func (s *SQLSink) initSchema() error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		id = "id BIGSERIAL PRIMARY KEY"
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS unknown_type_events (
			` + id + `,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			func_name TEXT,
			file TEXT,
			line INTEGER,
			col INTEGER,
			reason TEXT,
			expected_type TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_unknown_type_events_run ON unknown_type_events(run_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts all events in one transaction.
func (s *SQLSink) Record(ctx context.Context, events []UnknownTypeEvent) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.RunID, e.Name, e.Function,
			e.Location.File, e.Location.Line, e.Location.Column,
			e.Reason, e.ExpectedType,
		); err != nil {
			return fmt.Errorf("recording %s: %w", e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.recorded += len(events)
	return nil
}

// Events reads back the events recorded for runID in insertion order.
func (s *SQLSink) Events(ctx context.Context, runID string) ([]UnknownTypeEvent, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	q := `SELECT run_id, name, func_name, file, line, col, reason, expected_type
		FROM unknown_type_events WHERE run_id = ? ORDER BY id`
	if s.driver == "postgres" {
		q = strings.Replace(q, "?", "$1", 1)
	}
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnknownTypeEvent
	for rows.Next() {
		var (
			e                      UnknownTypeEvent
			function, file, reason sql.NullString
			expected               sql.NullString
			line, col              sql.NullInt64
		)
		if err := rows.Scan(&e.RunID, &e.Name, &function, &file, &line, &col, &reason, &expected); err != nil {
			return nil, err
		}
		e.Function = function.String
		e.Location.File = file.String
		e.Location.Line = int(line.Int64)
		e.Location.Column = int(col.Int64)
		e.Reason = reason.String
		e.ExpectedType = expected.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recorded is the number of events this sink has written.
func (s *SQLSink) Recorded() int {
	return s.recorded
}

func (s *SQLSink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
