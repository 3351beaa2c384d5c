package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the necessary schemas
// for persisting the turn progress, token standings and the immutable event log.
func InitSQLite(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Writers wait for each other instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create tables
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

// ConfigurePool sizes the connection pool.
func ConfigurePool(db *sql.DB, maxOpen, maxIdle int) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS game_state (
			game_id TEXT PRIMARY KEY,
			turn INTEGER NOT NULL DEFAULT 0,
			current_seat INTEGER NOT NULL DEFAULT 0,
			last_roll INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tokens (
			player_id TEXT NOT NULL,
			game_id TEXT NOT NULL,
			name TEXT,
			sprite TEXT,
			seat INTEGER NOT NULL,
			panel_index INTEGER NOT NULL,
			laps INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL,
			PRIMARY KEY (game_id, player_id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			turn INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_game_id ON events(game_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_actor_id ON events(actor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
