package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

func newMigrate(backend Backend, databaseURL string) (*migrate.Migrate, error) {
	var dir string
	switch backend {
	case BackendSQLite:
		dir = "migrations/sqlite"
		databaseURL = "sqlite://" + databaseURL
	case BackendPostgres:
		dir = "migrations/postgres"
	default:
		return nil, fmt.Errorf("no migrations for backend %q", backend)
	}

	sub, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Migrate brings the schema up to date. For SQLite databaseURL is the file
// path, for PostgreSQL a postgres:// URL.
func Migrate(backend Backend, databaseURL string) error {
	m, err := newMigrate(backend, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	log.WithFields(log.Fields{"backend": backend}).Info("Running migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Rollback undoes the last steps migrations
func Rollback(backend Backend, databaseURL string, steps int) error {
	if steps < 1 {
		steps = 1
	}
	m, err := newMigrate(backend, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	log.WithFields(log.Fields{"backend": backend, "steps": steps}).Info("Rolling back migrations")
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return nil
}
