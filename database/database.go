package database

import (
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// defaultParams make concurrent writers wait on each other instead of failing.
// _txlock=immediate takes the write lock at BEGIN so a read-then-write
// transaction cannot deadlock against another one.
const defaultParams = "_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=1&_txlock=immediate"

// DSN appends the default sqlite parameters to a plain database path.
// URLs that already carry parameters are returned unchanged.
func DSN(databaseURL string) string {
	if strings.Contains(databaseURL, "?") {
		return databaseURL
	}
	return databaseURL + "?" + defaultParams
}

// Initialize creates and returns a database connection
func Initialize(databaseURL string, logger logrus.FieldLogger) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", DSN(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			logger.WithError(err).Warnf("failed to set pragma %s", pragma)
		}
	}

	logger.Info("database connection established")
	return db, nil
}

// Migrate applies every pending migration embedded in the binary.
// The migrate instance is not closed: its driver would close db.
func Migrate(db *sqlx.DB, logger logrus.FieldLogger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("database migrations completed")
	return nil
}
