// Package database opens the sqlite file holding the persisted manifest
// and its load history.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const memoryPath = ":memory:"

type Config struct {
	// Path is the sqlite file, or ":memory:".
	Path string
	// BusyTimeout bounds how long a writer waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultConfig points at ~/.imagehub/data.db.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path:        filepath.Join(home, ".imagehub", "data.db"),
		BusyTimeout: 5 * time.Second,
	}
}

func (c Config) pragmas() []string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	p := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())}
	if c.Path != memoryPath {
		p = append(p, "PRAGMA journal_mode = WAL")
	}
	return p
}

// Open opens (creating if needed) the database at cfg.Path. An empty path
// falls back to DefaultConfig.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range cfg.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// OpenAndMigrate opens the database and applies the schema.
func OpenAndMigrate(cfg Config) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
