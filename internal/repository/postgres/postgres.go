package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/satelit-project/satelit-import/internal/repository"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB wraps a SQL database connection for all PostgreSQL operations
type DB struct {
	*sql.DB

	connTimeout time.Duration
}

// New creates a new PostgreSQL database connection
func New(connString string, maxConnections int, connTimeout time.Duration) (*DB, error) {
	sqldb, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqldb.SetMaxOpenConns(maxConnections)
	sqldb.SetMaxIdleConns(maxConnections)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqldb, connTimeout: connTimeout}, nil
}

// BeginTx starts a transaction over the same repositories
func (db *DB) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError("failed to begin transaction", err)
	}

	return &transaction{tx: tx}, nil
}

// Schedules returns the schedules repository
func (db *DB) Schedules() repository.ScheduleRepository {
	return &ScheduleRepository{db: db.DB}
}

// Tasks returns the tasks repository
func (db *DB) Tasks() repository.TaskRepository {
	return &TaskRepository{db: db.DB}
}

// QueuedJobs returns the queued jobs repository
func (db *DB) QueuedJobs() repository.QueuedJobRepository {
	return &QueuedJobRepository{db: db.DB}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// transaction implements repository.Transaction on top of *sql.Tx
type transaction struct {
	tx *sql.Tx
}

// Commit commits the transaction
func (t *transaction) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *transaction) Rollback() error {
	return t.tx.Rollback()
}

// Schedules returns the schedules repository bound to the transaction
func (t *transaction) Schedules() repository.ScheduleRepository {
	return &ScheduleRepository{db: t.tx}
}

// Tasks returns the tasks repository bound to the transaction
func (t *transaction) Tasks() repository.TaskRepository {
	return &TaskRepository{db: t.tx}
}

// QueuedJobs returns the queued jobs repository bound to the transaction
func (t *transaction) QueuedJobs() repository.QueuedJobRepository {
	return &QueuedJobRepository{db: t.tx}
}

// mapError wraps a driver error, surfacing pool starvation distinctly
func mapError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &repository.PoolExhaustedError{Cause: err}
	}

	return fmt.Errorf("%s: %w", msg, err)
}
