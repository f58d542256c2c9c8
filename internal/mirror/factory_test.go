package mirror

import (
	"context"
	"testing"

	"github.com/catchingknives/teams-webapp-exporter/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("empty type disables mirroring", func(t *testing.T) {
		m, err := NewFromConfig(ctx, config.MirrorConfig{})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		if m != nil {
			t.Errorf("NewFromConfig() = %T, want nil", m)
		}
	})

	t.Run("memory", func(t *testing.T) {
		m, err := NewFromConfig(ctx, config.MirrorConfig{Type: "memory", Name: "m"})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		if _, ok := m.(*MemoryMirror); !ok {
			t.Errorf("NewFromConfig() = %T, want *MemoryMirror", m)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		m, err := NewFromConfig(ctx, config.MirrorConfig{
			Type:         "filesystem",
			Name:         "fs",
			FSMirrorRoot: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		if _, ok := m.(*FileSystemMirror); !ok {
			t.Errorf("NewFromConfig() = %T, want *FileSystemMirror", m)
		}
	})

	t.Run("filesystem requires root", func(t *testing.T) {
		_, err := NewFromConfig(ctx, config.MirrorConfig{Type: "filesystem"})
		if err == nil {
			t.Error("NewFromConfig() expected error for missing fs_mirror_root")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewFromConfig(ctx, config.MirrorConfig{Type: "carrier-pigeon"})
		if err == nil {
			t.Error("NewFromConfig() expected error for unknown type")
		}
	})
}
