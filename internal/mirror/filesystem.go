package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemMirror copies archives into a directory tree, typically a
// mounted network share or a second disk.
type FileSystemMirror struct {
	name string
	root string
}

// NewFileSystemMirror creates a mirror rooted at the given path,
// creating the directory if needed.
func NewFileSystemMirror(name, root string) (*FileSystemMirror, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &FileSystemMirror{name: name, root: root}, nil
}

// Put writes the file atomically: data goes to a temp file in the same
// directory and is renamed into place, so a crash mid-copy never leaves
// a truncated archive behind.
func (m *FileSystemMirror) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := filepath.Join(m.root, name)

	tmpFile, err := os.CreateTemp(m.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ValidateSetup verifies that the mirror root exists and is a writable
// directory.
func (m *FileSystemMirror) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(m.root)
	if err != nil {
		return fmt.Errorf("mirror root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mirror root is not a directory: %s", m.root)
	}

	f, err := os.CreateTemp(m.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("mirror root not writable: %w", err)
	}
	probe := f.Name()
	f.Close()
	os.Remove(probe)

	return nil
}

// Compile-time check that FileSystemMirror implements the Mirror interface
var _ Mirror = (*FileSystemMirror)(nil)
