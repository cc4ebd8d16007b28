package db

import (
	"database/sql"
	"errors"

	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations runs all pending migrations in the given directory against the client's database
func RunMigrations(client *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(client, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, _, _ := m.Version()
	logger.For(nil).Infof("database at migration version %d", version)
	return nil
}
