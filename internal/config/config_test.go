package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ArchiveDir: "/home/user/.local/share/teamsexport/archives",
		LogDir:     "/home/user/.local/share/teamsexport/log",
		Database:   DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/teamsexport/db"},
		Export: ExportConfig{
			SettleMillis:  800,
			DeadlineSecs:  120,
			MaxIterations: 250,
			MaxAgeDays:    365,
		},
		Browser: BrowserConfig{DevtoolsURL: "http://localhost:9222"},
		Mirror: MirrorConfig{
			Type:         "filesystem",
			Name:         "nas",
			FSMirrorRoot: "/mnt/nas/teams-archives",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			RecipientsPath: "/home/user/.local/share/teamsexport/keys/teamsexport.pub",
			IdentityPath:   "/home/user/.local/share/teamsexport/keys/teamsexport.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ArchiveDir != original.ArchiveDir {
		t.Errorf("ArchiveDir = %q, want %q", got.ArchiveDir, original.ArchiveDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Export.SettleMillis != 800 {
		t.Errorf("Export.SettleMillis = %d, want %d", got.Export.SettleMillis, 800)
	}
	if got.Export.MaxAgeDays != 365 {
		t.Errorf("Export.MaxAgeDays = %d, want %d", got.Export.MaxAgeDays, 365)
	}
	if got.Browser.DevtoolsURL != "http://localhost:9222" {
		t.Errorf("Browser.DevtoolsURL = %q, want %q", got.Browser.DevtoolsURL, "http://localhost:9222")
	}
	if got.Mirror.Type != "filesystem" {
		t.Errorf("Mirror.Type = %q, want %q", got.Mirror.Type, "filesystem")
	}
	if got.Mirror.FSMirrorRoot != "/mnt/nas/teams-archives" {
		t.Errorf("Mirror.FSMirrorRoot = %q, want %q", got.Mirror.FSMirrorRoot, "/mnt/nas/teams-archives")
	}
	if got.Encryption.RecipientsPath != original.Encryption.RecipientsPath {
		t.Errorf("Encryption.RecipientsPath = %q, want %q", got.Encryption.RecipientsPath, original.Encryption.RecipientsPath)
	}
	if got.Encryption.IdentityPath != original.Encryption.IdentityPath {
		t.Errorf("Encryption.IdentityPath = %q, want %q", got.Encryption.IdentityPath, original.Encryption.IdentityPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/teamsexport")

	if cfg.ArchiveDir != "/data/teamsexport/archives" {
		t.Errorf("ArchiveDir = %q, want %q", cfg.ArchiveDir, "/data/teamsexport/archives")
	}
	if cfg.LogDir != "/data/teamsexport/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/teamsexport/log")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Browser.DevtoolsURL != "http://localhost:9222" {
		t.Errorf("Browser.DevtoolsURL = %q, want %q", cfg.Browser.DevtoolsURL, "http://localhost:9222")
	}
	if cfg.Encryption.RecipientsPath != "/data/teamsexport/keys/teamsexport.pub" {
		t.Errorf("Encryption.RecipientsPath = %q, want %q", cfg.Encryption.RecipientsPath, "/data/teamsexport/keys/teamsexport.pub")
	}
	if cfg.Encryption.IdentityPath != "/data/teamsexport/keys/teamsexport.key" {
		t.Errorf("Encryption.IdentityPath = %q, want %q", cfg.Encryption.IdentityPath, "/data/teamsexport/keys/teamsexport.key")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "teamsexport.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "teamsexport.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "teamsexport.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/teamsexport.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
