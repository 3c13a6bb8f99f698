// Package db opens the embedded DuckDB database and maintains the station
// search index.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
	// InMemory opens a private in-memory database and ignores DataDir.
	InMemory bool
	// Extensions are installed and loaded after opening, e.g. "spatial".
	Extensions []string
}

// Open opens a DuckDB database.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if !cfg.InMemory {
		// Create duckdb subdirectory
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	for _, ext := range cfg.Extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			// Extensions need network access the first time; the index works without them.
			slog.Warn("duckdb extension unavailable", "extension", ext, "error", err)
		}
	}

	// Station data is inserted from Go, so SQL never needs the host filesystem.
	if _, err := conn.Exec("SET enable_external_access = false; SET lock_configuration = true;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("locking duckdb configuration: %w", err)
	}
	return conn, nil
}
