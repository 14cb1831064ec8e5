// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Current schema version
const SchemaVersion = "2"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	// Create tables if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS programs (
			name TEXT PRIMARY KEY,
			source TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	if version == "" || version == "1" {
		// New DB or migrate from v1 to v2: add version history
		if err := s.migrateToV2(); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	} else if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// migrateToV2 creates the history table and records every existing program
// as its version 1.
func (s *SQLite) migrateToV2() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS program_versions (
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			source TEXT NOT NULL,
			ts TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (name, version)
		);
		INSERT OR IGNORE INTO program_versions (name, version, source)
			SELECT name, 1, source FROM programs;
	`)
	return err
}

// Get retrieves the latest source of a program.
func (s *SQLite) Get(name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var source string
	err := s.db.QueryRow("SELECT source FROM programs WHERE name = ?", name).Scan(&source)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return source, true, nil
}

// Put stores a program, appending a version when the source changed.
func (s *SQLite) Put(name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow("SELECT source FROM programs WHERE name = ?", name).Scan(&current)
	switch {
	case err == nil && current == source:
		return nil
	case err != nil && err != sql.ErrNoRows:
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO programs (name, source) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source
	`, name, source); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO program_versions (name, version, source)
		SELECT ?, COALESCE(MAX(version), 0) + 1, ? FROM program_versions WHERE name = ?
	`, name, source, name); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a program and its history.
func (s *SQLite) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM programs WHERE name = ?", name); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM program_versions WHERE name = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the stored program names in order.
func (s *SQLite) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT name FROM programs ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetHistory returns versions newest first. A limit of 0 returns all.
func (s *SQLite) GetHistory(name string, limit int) ([]VersionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT version, source, ts FROM program_versions
		WHERE name = ? ORDER BY version DESC LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []VersionEntry
	for rows.Next() {
		var e VersionEntry
		if err := rows.Scan(&e.Version, &e.Value, &e.Ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
