package mirror

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestMemoryMirror_PutAndGet(t *testing.T) {
	m := NewMemoryMirror("test")
	ctx := context.Background()

	content := "# General\n\nExported: 2025-06-20T10:30:00Z\n"
	if err := m.Put(ctx, "General.md", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := m.Get("General.md")
	if !ok {
		t.Fatal("Get() did not find stored file")
	}
	if string(got) != content {
		t.Errorf("Get() = %q, want %q", got, content)
	}
}

func TestMemoryMirror_PutOverwrites(t *testing.T) {
	m := NewMemoryMirror("test")
	ctx := context.Background()

	if err := m.Put(ctx, "a.md", strings.NewReader("old"), 3); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := m.Put(ctx, "a.md", strings.NewReader("newer"), 5); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, _ := m.Get("a.md")
	if string(got) != "newer" {
		t.Errorf("Get() = %q, want %q", got, "newer")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemoryMirror_SizeMismatch(t *testing.T) {
	m := NewMemoryMirror("test")

	err := m.Put(context.Background(), "a.md", bytes.NewReader([]byte("abc")), 99)
	if err == nil {
		t.Fatal("Put() expected size mismatch error")
	}
}

func TestMemoryMirror_ValidateSetup(t *testing.T) {
	m := NewMemoryMirror("test")
	if err := m.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
