package mirror

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryMirror keeps archive copies in memory. It exists for tests.
// Safe for concurrent use.
type MemoryMirror struct {
	name  string
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryMirror creates a new in-memory mirror with the given name.
func NewMemoryMirror(name string) *MemoryMirror {
	return &MemoryMirror{
		name:  name,
		files: make(map[string][]byte),
	}
}

// Put stores the file contents under name.
func (m *MemoryMirror) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

// Get returns the stored contents of name. Tests use this to inspect
// what was pushed.
func (m *MemoryMirror) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	return data, ok
}

// Len returns the number of stored files.
func (m *MemoryMirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// ValidateSetup always succeeds for the in-memory mirror.
func (m *MemoryMirror) ValidateSetup(ctx context.Context) error {
	return ctx.Err()
}

// Compile-time check that MemoryMirror implements the Mirror interface
var _ Mirror = (*MemoryMirror)(nil)
