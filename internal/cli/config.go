package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/inventory/internal/paths"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Config keys.
const (
	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyStoreKey    = "store_key"
	cfgKeyDSN         = "dsn"
	cfgKeyS3Bucket    = "s3.bucket"
	cfgKeyS3Region    = "s3.region"
	cfgKeyS3Endpoint  = "s3.endpoint"
	cfgKeyS3Prefix    = "s3.prefix"
	cfgKeyS3PathStyle = "s3.path_style"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
)

// envPrefix scopes environment overrides, e.g. INVENTORY_BACKEND or
// INVENTORY_S3_BUCKET.
const envPrefix = "INVENTORY"

// envKeys are the keys INVENTORY_* variables override. data_dir is left
// out: INVENTORY_DATA_DIR ranks below config.yaml and is read by
// paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyStoreKey,
	cfgKeyDSN,
	cfgKeyS3Bucket,
	cfgKeyS3Region,
	cfgKeyS3Endpoint,
	cfgKeyS3Prefix,
	cfgKeyS3PathStyle,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
}

const (
	defaultBackend   = types.BackendFile
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend   string    `yaml:"backend"`
	DataDir   string    `yaml:"data_dir,omitempty"`
	StoreKey  string    `yaml:"store_key,omitempty"`
	DSN       string    `yaml:"dsn,omitempty"`
	S3        *s3Config `yaml:"s3,omitempty"`
	LogLevel  string    `yaml:"log_level,omitempty"`
	LogFormat string    `yaml:"log_format,omitempty"`
}

type s3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// loadConfig reads config.yaml from configDir. A missing file or directory
// is not an error; defaults and the INVENTORY_* variables in envKeys still
// apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyStoreKey, types.DefaultStoreKey)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func configFromViper(v *viper.Viper) types.Config {
	return types.Config{
		Backend:  v.GetString(cfgKeyBackend),
		StoreKey: v.GetString(cfgKeyStoreKey),
		DSN:      v.GetString(cfgKeyDSN),
		S3: types.S3Config{
			Bucket:    v.GetString(cfgKeyS3Bucket),
			Region:    v.GetString(cfgKeyS3Region),
			Endpoint:  v.GetString(cfgKeyS3Endpoint),
			Prefix:    v.GetString(cfgKeyS3Prefix),
			PathStyle: v.GetBool(cfgKeyS3PathStyle),
		},
	}
}

// writeConfigIfMissing creates config.yaml from cfg. An existing file is
// left untouched and reported with false.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# inventory configuration\n# Keys may be overridden with INVENTORY_* environment variables.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// newLogger builds the CLI logger from the log_level and log_format keys.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
