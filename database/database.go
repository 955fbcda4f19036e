// Package database opens the gorm connection and migrates the schema.
package database

import (
	"fmt"
	"strings"

	"clicker-battle/logger"
	"clicker-battle/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres, or to SQLite when the DSN starts with "sqlite:" or "file:".
// Statement errors and slow queries are logged through log.
func Open(dsn string, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	cfg := &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if IsSQLite(db) {
		// sqlite allows one writer; a single connection keeps transactions serialized.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.EloHistory{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// IsPostgres reports whether row locks and advisory locks are available.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}
