// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/internal/domain"
)

// Open connects to PostgreSQL when databaseURL is set and to the SQLite file
// at sqlitePath otherwise.
func Open(databaseURL, sqlitePath string) (*gorm.DB, error) {
	if dsn := strings.TrimSpace(databaseURL); dsn != "" {
		return OpenPostgres(dsn)
	}
	return OpenSQLite(sqlitePath)
}

// OpenPostgres opens a PostgreSQL connection. Simple protocol keeps the
// driver compatible with transaction-mode poolers.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{PrepareStmt: false})
	if err != nil {
		return nil, err
	}
	configurePool(db, 20)
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early when the parent directory is missing; sqlite reports it as
	// "out of memory (14)" on some platforms.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	configurePool(db, 10)
	return db, nil
}

func configurePool(db *gorm.DB, conns int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(conns)
		sqlDB.SetMaxIdleConns(conns)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.PlanRun{},
		&domain.SatisfactionFeedback{},
		&domain.Idempotency{},
	)
}
