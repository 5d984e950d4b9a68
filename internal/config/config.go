package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for the drive server.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Identity IdentityConfig `toml:"identity"`
	Limits   LimitsConfig   `toml:"limits"`
	Policy   PolicyConfig   `toml:"policy"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string   `toml:"addr" validate:"required"`
	PublicBaseURL   string   `toml:"public_base_url" validate:"required,url"` // where this server is reachable; prefixes blob URLs
	ShareBaseURL    string   `toml:"share_base_url" validate:"omitempty,url"` // frontend prefix for share links; defaults to PublicBaseURL
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
	Dir    string `toml:"dir,omitempty"` // when set, logs are also appended to a file here
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type" validate:"oneof=sqlite memory"`
	Path string `toml:"path,omitempty" validate:"required_if=Type sqlite"` // only used for type=sqlite
}

// StorageConfig represents configuration for the object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type" validate:"oneof=memory filesystem s3"`

	// SigningSecret keys the HS256 tokens on download URLs served by this process
	// (types memory and filesystem).
	SigningSecret string `toml:"signing_secret,omitempty" validate:"required_unless=Type s3"`

	DownloadURLTTL Duration `toml:"download_url_ttl"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" validate:"required_if=Type filesystem"`

	// AgeIdentityFile, when set, holds the X25519 identity the filesystem store
	// encrypts blobs to at rest. Generate one with `drive config age-keygen`.
	AgeIdentityFile string `toml:"age_identity_file,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
	S3PublicBaseURL   string `toml:"s3_public_base_url,omitempty" validate:"omitempty,url"`
}

// IdentityConfig configures bearer-token verification.
type IdentityConfig struct {
	JWTSecret string   `toml:"jwt_secret" validate:"required,min=32"`
	Issuer    string   `toml:"issuer,omitempty"`
	Audience  string   `toml:"audience,omitempty"`
	CacheSize int      `toml:"cache_size" validate:"gte=0"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// LimitsConfig bounds storage and listings.
type LimitsConfig struct {
	QuotaBytes         int64 `toml:"quota_bytes" validate:"gt=0"`
	MaxUploadBytes     int64 `toml:"max_upload_bytes" validate:"gt=0"`
	DefaultPageLimit   int   `toml:"default_page_limit" validate:"gt=0"`
	DefaultSearchLimit int   `toml:"default_search_limit" validate:"gte=0,ltefield=MaxPageLimit"` // 0 uses the built-in default
	MaxPageLimit       int   `toml:"max_page_limit" validate:"gtefield=DefaultPageLimit"`
	MaxDepth           int   `toml:"max_depth" validate:"gt=0"`
}

// PolicyConfig selects lifecycle behavior.
type PolicyConfig struct {
	CascadeTrash            bool `toml:"cascade_trash"`
	RequireTrashBeforePurge bool `toml:"require_trash_before_purge"`
}

// NewConfig creates a Config with default settings that keeps its database
// and blobs under baseDir. The secrets key download URLs and bearer tokens.
func NewConfig(baseDir, signingSecret, jwtSecret string) *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			PublicBaseURL:   "http://localhost:8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{5 * time.Minute},
			ShutdownTimeout: Duration{15 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(baseDir, "log"),
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "drive.db"),
		},
		Storage: StorageConfig{
			Type:           "filesystem",
			SigningSecret:  signingSecret,
			DownloadURLTTL: Duration{time.Hour},
			FSRoot:         filepath.Join(baseDir, "blobs"),
		},
		Identity: IdentityConfig{
			JWTSecret: jwtSecret,
			CacheSize: 1024,
			CacheTTL:  Duration{5 * time.Minute},
		},
		Limits: LimitsConfig{
			QuotaBytes:         100 * 1024 * 1024,
			MaxUploadBytes:     50 * 1024 * 1024,
			DefaultPageLimit:   20,
			DefaultSearchLimit: 10,
			MaxPageLimit:       100,
			MaxDepth:           64,
		},
		Policy: PolicyConfig{
			CascadeTrash:            false,
			RequireTrashBeforePurge: true,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path. The file may hold
// secrets, so it is created private to the user.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
