// Package db opens the DuckDB database drawing features are stored in.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database.
type Config struct {
	DataDir string
	DBName  string
	// Extensions are installed and loaded after opening. Failures are
	// ignored so an offline start still works.
	Extensions []string
}

// Open opens a new DuckDB connection.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		// Create duckdb subdirectory
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "viewer"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	for _, ext := range cfg.Extensions {
		// Extensions might already be installed, continue
		_, _ = conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext))
	}
	return conn, nil
}
