package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mysql", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid file config",
			config:  Config{Backend: "file", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "postgres without dsn returns ErrDSNEmpty",
			config:  Config{Backend: "postgres"},
			wantErr: ErrDSNEmpty,
		},
		{
			name:    "postgres with dsn",
			config:  Config{Backend: "postgres", DSN: "postgres://localhost/inventory"},
			wantErr: nil,
		},
		{
			name:    "s3 without bucket returns ErrBucketEmpty",
			config:  Config{Backend: "s3"},
			wantErr: ErrBucketEmpty,
		},
		{
			name:    "s3 with bucket",
			config:  Config{Backend: "s3", S3: S3Config{Bucket: "home"}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigKey(t *testing.T) {
	if got := (Config{}).Key(); got != DefaultStoreKey {
		t.Errorf("Key() = %q, want %q", got, DefaultStoreKey)
	}
	if got := (Config{StoreKey: "garage.json"}).Key(); got != "garage.json" {
		t.Errorf("Key() = %q, want garage.json", got)
	}
}
