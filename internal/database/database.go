package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/gestprod/gestprodgo/internal/config"
	_ "modernc.org/sqlite"
)

// DB wraps sql.DB for the production SQLite file
type DB struct {
	*sql.DB
	Path string
}

// Connect opens the production database file. The file must already exist:
// deployed databases are provisioned externally and a missing file is a
// configuration error, not something to silently create.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("database file %s not found: %w", cfg.Path, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer: the shop-floor app is the only process expected to
	// write, and every statement commits on its own.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("✅ Database connection established (%s)", cfg.Path)

	return &DB{DB: db, Path: cfg.Path}, nil
}

// Open opens (creating if absent) a SQLite file without the existence check.
// Used by the demo seeder and tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Path: path}, nil
}

// Close shuts the connection down
func (db *DB) Close() error {
	return db.DB.Close()
}
