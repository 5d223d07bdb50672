package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver      string
	DSN         string
	MaxConns    int32
	DialTimeout time.Duration
}

// DB is a database/sql handle plus the dialect it speaks. Postgres handles
// also own the pgx pool behind them.
type DB struct {
	*sql.DB
	driver string
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects and applies the schema. SQLite goes through the pure-Go
// modernc driver; Postgres through a pgx pool wrapped as *sql.DB.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	logger.Info("connecting to database", "driver", cfg.Driver)

	db := &DB{driver: cfg.Driver, logger: logger}
	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// A single connection keeps ":memory:" databases shared.
		sqldb.SetMaxOpenConns(1)
		db.DB = sqldb
	case DriverPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "finextract"

		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db.pool = pool
		db.DB = stdlib.OpenDBFromPool(pool)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	if err := db.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database", "driver", cfg.Driver)
	return db, nil
}

func (db *DB) Driver() string { return db.driver }

// Close closes the database connections gracefully
func (db *DB) Close() error {
	db.logger.Info("closing database connections")
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// rebind rewrites "?" placeholders as $1, $2, ... for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS score_runs (
			id TEXT PRIMARY KEY,
			document_sha256 TEXT NOT NULL,
			source_path TEXT NOT NULL,
			total_models INTEGER NOT NULL,
			successful_models INTEGER NOT NULL,
			best_engine TEXT NOT NULL,
			mean_score DOUBLE PRECISION NOT NULL,
			factors TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_runs_sha ON score_runs(document_sha256)`,
		`CREATE TABLE IF NOT EXISTS score_entries (
			run_id TEXT NOT NULL REFERENCES score_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			engine TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
