package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresPoolConfig sizes the shared pool behind the call, user and chat stores.
type PostgresPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func (c PostgresPoolConfig) withDefaults() PostgresPoolConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 20
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}

// OpenPostgres opens a pool through a database/sql driver ("pgx") and pings it.
// dsn carries the password; never log it.
func OpenPostgres(ctx context.Context, driverName, dsn string, pool PostgresPoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := Probe(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Probe pings the pool and, when tables are given, checks that each exists.
// /healthz uses it so a database without the call schema reports degraded.
func Probe(ctx context.Context, db *sql.DB, timeout time.Duration, tables ...string) error {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(probeCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}

	var missing []string
	for _, t := range tables {
		var ok bool
		if err := db.QueryRowContext(probeCtx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&ok); err != nil {
			return fmt.Errorf("db probe %s: %w", t, err)
		}
		if !ok {
			missing = append(missing, t)
		}
	}
	return missingTables(missing)
}

func missingTables(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("db schema incomplete: missing %s", strings.Join(names, ", "))
}

type TxFunc func(ctx context.Context, tx *sql.Tx) error

// txAttempts bounds retries of a transaction that lost a serialization race,
// e.g. two clients ending the same call at once.
const txAttempts = 3

// WithTx runs fn in a transaction and commits it. fn errors and panics roll
// back; panics are re-raised. Serialization failures and deadlocks are
// retried, so fn must be safe to run again.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = runTx(ctx, db, opts, fn)
		if err == nil || !retryableTx(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(ctx, tx)
}

// retryableTx matches SQLSTATE 40001 (serialization_failure) and 40P01
// (deadlock_detected).
func retryableTx(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
