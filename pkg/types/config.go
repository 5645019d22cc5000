package types

import "errors"

// Config selects the key-value backend that holds the inventory document.
type Config struct {
	Backend  string   `json:"backend" yaml:"backend"`
	DataDir  string   `json:"data_dir" yaml:"data_dir"`
	StoreKey string   `json:"store_key" yaml:"store_key,omitempty"`
	DSN      string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	S3       S3Config `json:"s3" yaml:"s3,omitempty"`
}

// S3Config holds the bucket parameters for the s3 backend. Credentials come
// from the default AWS chain.
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket,omitempty"`
	Region    string `json:"region" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint" yaml:"endpoint,omitempty"`
	Prefix    string `json:"prefix" yaml:"prefix,omitempty"`
	PathStyle bool   `json:"path_style" yaml:"path_style,omitempty"`
}

// Supported backend names.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// DefaultStoreKey names the inventory document inside the backend.
const DefaultStoreKey = "inventory.json"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDSNEmpty       = errors.New("postgres backend requires a dsn")
	ErrBucketEmpty    = errors.New("s3 backend requires a bucket")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:     true,
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendS3:       true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendPostgres:
		if c.DSN == "" {
			return ErrDSNEmpty
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return ErrBucketEmpty
		}
	}
	return nil
}

// Key returns the configured store key or DefaultStoreKey.
func (c Config) Key() string {
	if c.StoreKey == "" {
		return DefaultStoreKey
	}
	return c.StoreKey
}
