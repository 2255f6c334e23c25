// ABOUTME: Database connection management and initialization
// ABOUTME: Handles SQLite connection pragmas, XDG paths, and versioned schema migrations

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBFileName is the database file inside the data directory.
const DBFileName = "inkreader.db"

// dsnPragmas are applied to every pooled connection. foreign_keys is a
// per-connection setting, so it must live in the DSN rather than a one-off Exec.
const dsnPragmas = "?_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(ON)" +
	"&_pragma=busy_timeout(5000)" +
	"&_txlock=immediate" +
	"&_time_format=sqlite"

// Open opens (creating if needed) the database at dbPath and brings the schema
// up to date.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	// Use 0700 (owner only) for privacy - RSS reading habits are personal data
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return conn, nil
}

// GetDefaultDBPath returns the database path under the XDG data directory.
func GetDefaultDBPath() string {
	return filepath.Join(GetDefaultDataDir(), DBFileName)
}

// GetDefaultOPMLPath returns the default OPML export location.
func GetDefaultOPMLPath() string {
	return filepath.Join(GetDefaultDataDir(), "feeds.opml")
}

// GetDefaultDataDir returns $XDG_DATA_HOME/inkreader or ~/.local/share/inkreader.
func GetDefaultDataDir() string {
	return filepath.Join(getDataHome(), "inkreader")
}

func getDataHome() string {
	if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
		return dataDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share")
}
