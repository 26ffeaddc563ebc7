package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// OpenStateDatabase opens the client state file, creating it and its parent
// directories if needed
func OpenStateDatabase(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("state database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}

	return db, nil
}

// SQLiteTokenStore is a TokenStore backed by the client state file. The file
// is opened on first use so that an unusable path surfaces as a
// *StorageError from the identity rather than at construction.
type SQLiteTokenStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteTokenStore creates a store for the state file at path
func NewSQLiteTokenStore(path string) *SQLiteTokenStore {
	return &SQLiteTokenStore{path: path}
}

// Path returns the state file location
func (s *SQLiteTokenStore) Path() string {
	return s.path
}

func (s *SQLiteTokenStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := OpenStateDatabase(s.path)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "open", Err: err}
	}
	s.db = db
	return db, nil
}

// Load returns the value stored under key
func (s *SQLiteTokenStore) Load(ctx context.Context, key string) (string, bool, error) {
	db, err := s.conn()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM client_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return value, true, nil
}

// StoreIfAbsent inserts value unless a non-blank value already exists, then
// reads back the stored value. Concurrent writers converge on one value.
func (s *SQLiteTokenStore) StoreIfAbsent(ctx context.Context, key, value string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO client_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE trim(client_state.value) = ''`, key, value)
	if err != nil {
		return "", &StorageError{Path: s.path, Op: "write", Err: err}
	}

	var stored string
	if err := tx.QueryRowContext(ctx, "SELECT value FROM client_state WHERE key = ?", key).Scan(&stored); err != nil {
		return "", &StorageError{Path: s.path, Op: "read", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return "", &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return stored, nil
}

// Close releases the database handle if it was opened
func (s *SQLiteTokenStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
