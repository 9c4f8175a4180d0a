package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	storeDirPerm  = os.FileMode(0o700)
	storeFilePerm = os.FileMode(0o600)
)

// Store persists one manifest file per configuration id under a single
// directory. Writes are atomic (temp file + rename) so a crash mid-save
// never leaves a truncated manifest behind. Each config id also gets a
// lock that callers hold for the duration of a sync run, serializing
// overlapping runs against the same manifest file.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

// Path returns the manifest file path for a configuration id.
func (s *Store) Path(configID string) string {
	return filepath.Join(s.dir, configID+".json")
}

// Locker returns the per-config mutex. Two sync runs for the same config
// must not interleave reads and overwrites of the manifest file.
func (s *Store) Locker(configID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[configID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[configID] = l
	}

	return l
}

// Load reads the manifest for a configuration id. Returns (nil, nil)
// when no manifest has been persisted yet, which callers treat as
// first sync.
func (s *Store) Load(configID string) (*Manifest, error) {
	data, err := os.ReadFile(s.Path(configID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading manifest for %s: %w", configID, err)
	}

	return Decode(data)
}

// Save writes the manifest atomically.
func (s *Store) Save(m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, storeDirPerm); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	path := s.Path(m.ConfigID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, storeFilePerm); err != nil {
		return fmt.Errorf("writing manifest temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming manifest for %s: %w", m.ConfigID, err)
	}

	return nil
}

// Reset removes the persisted manifest for a configuration id. Used by
// explicit reset flows only; a normal sync never deletes its manifest.
func (s *Store) Reset(configID string) error {
	err := os.Remove(s.Path(configID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing manifest for %s: %w", configID, err)
	}

	return nil
}
