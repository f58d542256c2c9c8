package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for teamsexport.
type Config struct {
	ArchiveDir string           `toml:"archive_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Export     ExportConfig     `toml:"export"`
	Browser    BrowserConfig    `toml:"browser"`
	Mirror     MirrorConfig     `toml:"mirror"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// ExportConfig holds the pacing knobs for the extraction loop. Zero
// values mean "use the built-in default".
type ExportConfig struct {
	SettleMillis  int `toml:"settle_millis"`  // wait after each scroll trigger
	DeadlineSecs  int `toml:"deadline_secs"`  // wall-clock budget per run
	MaxIterations int `toml:"max_iterations"` // hard ceiling on scroll rounds
	MaxAgeDays    int `toml:"max_age_days"`   // 0 = no age cutoff
}

// BrowserConfig tells the tool where to find the already-running
// browser session. The tool attaches to an existing session rather
// than launching its own, so the user stays logged in.
type BrowserConfig struct {
	DevtoolsURL string `toml:"devtools_url"` // e.g. http://localhost:9222
}

// MirrorConfig represents configuration for an archive mirror backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MirrorConfig struct {
	Type string `toml:"type"` // "", "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSMirrorRoot string `toml:"fs_mirror_root,omitempty"`
}

// EncryptionConfig holds the age recipients used to encrypt archives
// before they leave the machine via a mirror. Leaving Type empty
// mirrors archives in plain text.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "", "age", or "test"
	RecipientsPath string `toml:"recipients_path,omitempty"`
	IdentityPath   string `toml:"identity_path,omitempty"`
}

// DatabaseConfig represents configuration for the run-history database.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ArchiveDir: filepath.Join(baseDir, "archives"),
		LogDir:     filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Browser: BrowserConfig{
			DevtoolsURL: "http://localhost:9222",
		},
		Encryption: EncryptionConfig{
			RecipientsPath: filepath.Join(baseDir, "keys", "teamsexport.pub"),
			IdentityPath:   filepath.Join(baseDir, "keys", "teamsexport.key"),
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

// ReadFromFile reads a Config from the specified file path.
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
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
