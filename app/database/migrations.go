package database

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"testing/fstest"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql.tmpl migrations/postgres/*.sql.tmpl
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the report table and
// returns version info. Versions are tracked per table in
// <table>_schema_migrations so several deployments can share one database.
func RunMigrations(db *DB, table string) (uint, bool, error) {
	if err := ValidateTableName(table); err != nil {
		return 0, false, err
	}

	driver, err := migrationDriver(db, table)
	if err != nil {
		return 0, false, err
	}

	rendered, err := renderMigrations(db.Driver, table)
	if err != nil {
		return 0, false, err
	}

	source, err := iofs.New(rendered, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	// The migrate instance is not closed: closing it would close db as well.
	m, err := migrate.NewWithInstance("iofs", source, db.Driver, driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

func migrationDriver(db *DB, table string) (migratedb.Driver, error) {
	migrationsTable := table + "_schema_migrations"

	switch db.Driver {
	case DriverSQLite:
		driver, err := sqlite.WithInstance(db.DB.DB, &sqlite.Config{MigrationsTable: migrationsTable})
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
		}
		return driver, nil
	case DriverPostgres:
		driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{MigrationsTable: migrationsTable})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres driver: %w", err)
		}
		return driver, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

// renderMigrations expands the embedded templates for one driver into an
// in-memory filesystem with plain golang-migrate file names.
func renderMigrations(driver, table string) (fs.FS, error) {
	dir := path.Join("migrations", driver)

	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", driver, err)
	}

	rendered := fstest.MapFS{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}

		tmpl, err := template.ParseFS(migrationFS, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, struct{ Table string }{Table: table}); err != nil {
			return nil, fmt.Errorf("failed to render migration %s: %w", entry.Name(), err)
		}

		rendered[strings.TrimSuffix(entry.Name(), ".tmpl")] = &fstest.MapFile{Data: buf.Bytes(), Mode: 0o644}
	}

	return rendered, nil
}
