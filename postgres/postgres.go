// Package postgres implements the parkwatch services on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/dukerupert/parkwatch"
)

// DB wraps the connection pool and exposes the domain services.
type DB struct {
	db     *sql.DB
	logger *slog.Logger

	// Now returns the current time. Replaced in tests.
	Now func() time.Time

	UserService      parkwatch.UserService
	SessionService   parkwatch.SessionService
	IncidentService  parkwatch.IncidentService
	FineService      parkwatch.FineService
	AuditService     parkwatch.AuditService
	AnalyticsService parkwatch.AnalyticsService
}

// NewDB returns a DB backed by db. Obtain db from a pgx pool with
// stdlib.OpenDBFromPool.
func NewDB(db *sql.DB, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DB{db: db, logger: logger, Now: time.Now}

	d.UserService = &UserService{db: d}
	d.SessionService = &SessionService{db: d}
	d.IncidentService = &IncidentService{db: d}
	d.FineService = &FineService{db: d}
	d.AuditService = &AuditService{db: d}
	d.AnalyticsService = &AnalyticsService{db: d}

	return d
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// now returns the current time truncated to microseconds, the resolution
// PostgreSQL stores.
func (d *DB) now() time.Time {
	return d.Now().UTC().Truncate(time.Microsecond)
}

// withTx runs fn inside a transaction. The transaction is rolled back on
// every path that does not reach a successful commit.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return parkwatch.Internal("Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return parkwatch.Internal("Failed to commit transaction", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
