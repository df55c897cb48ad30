package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id TEXT NOT NULL,
	application_id TEXT NOT NULL,
	application_name TEXT NOT NULL,
	user_name TEXT NOT NULL,
	launcher TEXT NOT NULL DEFAULT '',
	instance_id TEXT NOT NULL DEFAULT '',
	process_id INTEGER NOT NULL DEFAULT 0,
	launch_type TEXT NOT NULL DEFAULT '',
	success BOOLEAN NOT NULL,
	error_code TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL,
	at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS launches_app ON launches (application_id, at);
CREATE TABLE IF NOT EXISTS terminations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	instance_id TEXT NOT NULL,
	application_id TEXT NOT NULL,
	user_name TEXT NOT NULL,
	process_id INTEGER NOT NULL,
	method TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	duration_ns INTEGER NOT NULL,
	at TIMESTAMP NOT NULL
);
`

const insertLaunch = `
INSERT INTO launches (attempt_id, application_id, application_name, user_name, launcher, instance_id,
	process_id, launch_type, success, error_code, error_message, duration_ns, at)
VALUES (:attempt_id, :application_id, :application_name, :user_name, :launcher, :instance_id,
	:process_id, :launch_type, :success, :error_code, :error_message, :duration_ns, :at)
`

const insertTermination = `
INSERT INTO terminations (instance_id, application_id, user_name, process_id, method, success, duration_ns, at)
VALUES (:instance_id, :application_id, :user_name, :process_id, :method, :success, :duration_ns, :at)
`

// Sink persists audit records and reads them back
type Sink interface {
	RecordLaunch(ctx context.Context, rec types.LaunchRecord) error
	RecordTermination(ctx context.Context, rec types.TerminationRecord) error
	Recent(ctx context.Context, limit int) ([]types.LaunchRecord, error)
	RecentTerminations(ctx context.Context, limit int) ([]types.TerminationRecord, error)
	Close() error
}

var _ Sink = (*SQLiteSink)(nil)

// SQLiteSink stores audit records in a SQLite database
type SQLiteSink struct {
	db  *sqlx.DB
	log *logging.Logger
}

// Open connects to the SQLite database at dsn and creates the tables
func Open(dsn string, log *logging.Logger) (*SQLiteSink, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	log = logging.OrNop(log).Named("audit")
	log.Info("Audit log ready", zap.String("dsn", dsn))
	return &SQLiteSink{db: db, log: log}, nil
}

func (s *SQLiteSink) RecordLaunch(ctx context.Context, rec types.LaunchRecord) error {
	if _, err := s.db.NamedExecContext(ctx, insertLaunch, rec); err != nil {
		return fmt.Errorf("insert launch: %w", err)
	}
	return nil
}

func (s *SQLiteSink) RecordTermination(ctx context.Context, rec types.TerminationRecord) error {
	if _, err := s.db.NamedExecContext(ctx, insertTermination, rec); err != nil {
		return fmt.Errorf("insert termination: %w", err)
	}
	return nil
}

// Recent returns up to limit launch records, newest first
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]types.LaunchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []types.LaunchRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT attempt_id, application_id, application_name, user_name, launcher, instance_id,
			process_id, launch_type, success, error_code, error_message, duration_ns, at
		FROM launches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	return out, nil
}

// RecentTerminations returns up to limit termination records, newest first
func (s *SQLiteSink) RecentTerminations(ctx context.Context, limit int) ([]types.TerminationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []types.TerminationRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT instance_id, application_id, user_name, process_id, method, success, duration_ns, at
		FROM terminations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query terminations: %w", err)
	}
	return out, nil
}

// CountFailures returns the number of failed launches of an application
func (s *SQLiteSink) CountFailures(ctx context.Context, appID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM launches WHERE application_id = ? AND NOT success`, appID)
	return n, err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
