package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// sqliteFileName is the database file created under the data directory.
const sqliteFileName = "inventory.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

// SQLiteStore keeps documents as rows of a single kv table.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and ensures the kv
// table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = sqliteFileName
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	k, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, ErrClosed
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM kv WHERE key = ?`, k).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", k, err)
	}
	return payload, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv(key, payload) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		k, data)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", k, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }
