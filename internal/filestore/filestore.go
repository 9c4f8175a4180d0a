// Package filestore provides the on-device storage for attachment files,
// addressed by relative path. All paths are validated before any
// operation: absolute paths and traversal sequences are rejected so a
// malicious relative path in a downloaded record can never escape the
// storage root.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	dirPerm  = os.FileMode(0o755)
	filePerm = os.FileMode(0o644)
)

// Store is a thread-safe file store rooted at a single directory.
// Writes take an exclusive lock; reads take a shared lock so a reader
// never observes a partial write.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a store rooted at dir. The directory must be an
// absolute path, resolved at config load time.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage root.
func (s *Store) Dir() string {
	return s.dir
}

// SaveFile writes data at the relative path, creating parent directories
// as needed, and returns the relative path back.
func (s *Store) SaveFile(relPath string, data []byte) (string, error) {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(absPath), dirPerm); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", relPath, err)
	}

	if err := os.WriteFile(absPath, data, filePerm); err != nil {
		return "", fmt.Errorf("writing %s: %w", relPath, err)
	}

	return relPath, nil
}

// ReadFile returns the content at the relative path.
func (s *Store) ReadFile(relPath string) ([]byte, error) {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return os.ReadFile(absPath)
}

// DeleteFile removes the file at the relative path. Returns nil if the
// file does not exist.
func (s *Store) DeleteFile(relPath string) error {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", relPath, err)
	}

	return nil
}

// FileExists reports whether a file exists at the relative path.
func (s *Store) FileExists(relPath string) bool {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(absPath)

	return err == nil && !info.IsDir()
}

// FileSize returns the byte size of the file at the relative path.
func (s *Store) FileSize(relPath string) (int64, error) {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(absPath)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// resolve converts a relative path to an absolute path within the
// storage root, rejecting empty, absolute and traversing paths.
func (s *Store) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}

	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("absolute path rejected: %q", relPath)
	}

	absPath := filepath.Join(s.dir, relPath)
	if !strings.HasPrefix(absPath, s.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal blocked: %q resolves outside storage root", relPath)
	}

	return absPath, nil
}
