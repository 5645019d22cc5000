// Package kvstore provides the durable key-value store that holds the
// inventory document. Each driver loads and saves one opaque blob per key;
// the item store decides what the blob contains.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Store loads and saves whole documents by key.
type Store interface {
	// Load returns the document stored under key.
	// Returns ErrNotExist if nothing has been saved under key.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the document stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Close releases driver resources. Idempotent.
	Close() error
}

// Driver errors.
var (
	ErrNotExist   = errors.New("key does not exist")
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("store is closed")
)

// Open validates cfg and returns the driver it selects. Relative paths are
// resolved against cfg.DataDir.
func Open(ctx context.Context, cfg types.Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	switch cfg.Backend {
	case types.BackendFile:
		return NewFileStore(dataDir)
	case types.BackendMemory:
		return NewMemoryStore(), nil
	case types.BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, sqliteFileName))
	case types.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN)
	case types.BackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, types.ErrBackendUnknown
	}
}

// checkKey rejects keys that are empty or could escape a directory root.
func checkKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q contains '..'", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}
