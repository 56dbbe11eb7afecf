// Package store persists grid and point-map snapshots to a local sqlite
// database. The SLAM core itself holds no state beyond a single process's
// lifetime (spec.md §6 calls persistence "a reasonable extension" left
// unspecified); this package gives that extension a concrete, testable home,
// modeled on the teacher's internal/db package: a golang-migrate-managed
// schema over a cgo-free modernc.org/sqlite connection, with each snapshot's
// payload gzip-compressed into a single blob column.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/slamcore/internal/telemetry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SnapshotStore wraps a sqlite connection holding grid and point-map
// snapshots. It owns the schema: Open runs every pending migration before
// returning.
type SnapshotStore struct {
	db *sql.DB
}

// Open creates (if necessary) and migrates a sqlite database at path, or use
// ":memory:" for an ephemeral in-process store (tests).
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply pragmas: %w", err)
	}

	s := &SnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) migrate() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: sub migrations fs: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("store: iofs source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: new migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		telemetry.Logf("store: migration failed: %v", err)
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SnapshotStore) Close() error { return s.db.Close() }

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) { log.Printf("[store/migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                  { return false }
