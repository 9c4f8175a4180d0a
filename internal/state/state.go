// Package state persists per-configuration run history: when a sync last
// succeeded, what the last failure was, and how many runs completed.
// The manifest is the engine's ledger; this is the small operational
// record a UI renders without parsing a manifest.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	stateDirPerm  = fs.FileMode(0o700)
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout bounds the wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var runsBucket = []byte("runs")

// RunState is the persisted record for one sync configuration.
type RunState struct {
	LastSuccessAt int64  `json:"lastSuccessAt"`
	LastError     string `json:"lastError"`
	CompletedRuns int    `json:"completedRuns"`
}

// State wraps a bbolt database holding run state for all configurations.
type State struct {
	db *bolt.DB
}

// LoadAt opens the state database at the given path, creating it (and
// its parent directory) if needed.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Run returns the run state for a configuration, zero-valued when the
// configuration has never synced.
func (s *State) Run(configID string) (RunState, error) {
	var rs RunState

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(runsBucket).Get([]byte(configID))
		if v == nil {
			return nil
		}

		return json.Unmarshal(v, &rs)
	})

	return rs, err
}

// SetRun persists the run state for a configuration.
func (s *State) SetRun(configID string, rs RunState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rs)
		if err != nil {
			return err
		}

		return tx.Bucket(runsBucket).Put([]byte(configID), data)
	})
}
