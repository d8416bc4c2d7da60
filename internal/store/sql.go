package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/retry"
	"ipsentry/internal/types"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// dialect holds the per-driver SQL
type dialect struct {
	driverName   string
	migrations   string
	upsert       string
	insertChange string
}

const selectState = `SELECT address, last_change_at, stagnation_budget_seconds, escalation_step, updated_at
FROM monitoring_state WHERE id = 1`

var dialects = map[string]dialect{
	"sqlite": {
		driverName: "sqlite3",
		migrations: "sqlite",
		upsert: `INSERT INTO monitoring_state (id, address, last_change_at, stagnation_budget_seconds, escalation_step, updated_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET address = excluded.address, last_change_at = excluded.last_change_at,
stagnation_budget_seconds = excluded.stagnation_budget_seconds, escalation_step = excluded.escalation_step,
updated_at = excluded.updated_at`,
		insertChange: `INSERT INTO address_changes (previous_address, address, after_seconds, changed_at) VALUES (?, ?, ?, ?)`,
	},
	"mysql": {
		driverName: "mysql",
		migrations: "mysql",
		upsert: `INSERT INTO monitoring_state (id, address, last_change_at, stagnation_budget_seconds, escalation_step, updated_at)
VALUES (1, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE address = VALUES(address), last_change_at = VALUES(last_change_at),
stagnation_budget_seconds = VALUES(stagnation_budget_seconds), escalation_step = VALUES(escalation_step),
updated_at = VALUES(updated_at)`,
		insertChange: `INSERT INTO address_changes (previous_address, address, after_seconds, changed_at) VALUES (?, ?, ?, ?)`,
	},
	"postgres": {
		driverName: "postgres",
		migrations: "postgres",
		upsert:     postgresUpsert,
		insertChange: `INSERT INTO address_changes (previous_address, address, after_seconds, changed_at) VALUES ($1, $2, $3, $4)`,
	},
	"pgx": {
		driverName: "pgx",
		migrations: "postgres",
		upsert:     postgresUpsert,
		insertChange: `INSERT INTO address_changes (previous_address, address, after_seconds, changed_at) VALUES ($1, $2, $3, $4)`,
	},
}

const postgresUpsert = `INSERT INTO monitoring_state (id, address, last_change_at, stagnation_budget_seconds, escalation_step, updated_at)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET address = EXCLUDED.address, last_change_at = EXCLUDED.last_change_at,
stagnation_budget_seconds = EXCLUDED.stagnation_budget_seconds, escalation_step = EXCLUDED.escalation_step,
updated_at = EXCLUDED.updated_at`

// SQLStore keeps the state as row id=1 of monitoring_state
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	history bool
	logger  *zap.Logger
}

// NewSQLStore opens the database and runs the embedded migrations
func NewSQLStore(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (*SQLStore, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("%w: %s", types.ErrInvalidDriver, cfg.Driver))
	}
	if cfg.DSN == "" {
		return nil, retry.Permanent(fmt.Errorf("dsn is required for the %s driver", cfg.Driver))
	}

	if d.migrations == "sqlite" {
		if err := ensureDBDir(cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// migrate closes the handle it is given
	migrationDB, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := runMigrations(ctx, migrationDB, d, logger); err != nil {
		_ = migrationDB.Close()
		return nil, err
	}

	db, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("State database ready", zap.String("driver", cfg.Driver))

	return &SQLStore{
		db:      db,
		dialect: d,
		history: cfg.History,
		logger:  logger,
	}, nil
}

// Load reads row id=1
func (s *SQLStore) Load(ctx context.Context) (types.MonitoringState, error) {
	var r record
	err := s.db.QueryRowContext(ctx, selectState).Scan(
		&r.Address, &r.LastChangeAt, &r.StagnationBudgetSeconds, &r.EscalationStep, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewMonitoringState(), nil
	}
	if err != nil {
		return types.NewMonitoringState(), fmt.Errorf("failed to query state: %w", err)
	}
	return r.state()
}

// Save upserts row id=1 in one statement
func (s *SQLStore) Save(ctx context.Context, state types.MonitoringState) error {
	r := newRecord(state, time.Now())
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert,
		r.Address, r.LastChangeAt, r.StagnationBudgetSeconds, r.EscalationStep, r.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// RecordChange inserts into address_changes
func (s *SQLStore) RecordChange(ctx context.Context, change types.AddressChange) error {
	if !s.history {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.insertChange,
		change.Previous.String(),
		change.Current.String(),
		int64(change.After/time.Second),
		change.ChangedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ensureDBDir creates the directory of a file-backed sqlite DSN
func ensureDBDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
