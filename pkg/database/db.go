package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Path string
}

// DefaultConfig resolves the database path from TITLETRACK_DB_PATH, falling
// back to ~/.titletrack/data.db.
func DefaultConfig() Config {
	if p := os.Getenv("TITLETRACK_DB_PATH"); p != "" {
		return Config{Path: p}
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path: filepath.Join(home, ".titletrack", "data.db"),
	}
}

// ConfigFor returns a Config for path, or DefaultConfig when path is empty.
func ConfigFor(path string) Config {
	if path == "" {
		return DefaultConfig()
	}
	return Config{Path: path}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	// background refreshes write concurrently with API requests
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// OpenAndMigrate opens the database and brings the schema up to date.
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

func MustOpen(cfg Config) *sql.DB {
	db, err := OpenAndMigrate(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Path).Msg("failed to open db")
	}
	return db
}
