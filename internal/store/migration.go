package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// runMigrations brings the schema up to date. migrate closes db when done,
// so callers pass a dedicated connection.
func runMigrations(ctx context.Context, db *sql.DB, d dialect, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+d.migrations)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var driver database.Driver
	switch d.migrations {
	case "sqlite":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case "mysql":
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("no migrations for %s", d.migrations)
	}
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.migrations, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Debug("Failed to close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			errChan <- fmt.Errorf("migration failed: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		m.GracefulStop <- true
		<-errChan
		return fmt.Errorf("migration cancelled: %w", ctx.Err())
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Debug("Schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
