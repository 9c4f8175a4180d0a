// Package manifest holds the durable ledger of what the sync engine has
// seen: one versioned, timestamped manifest per sync configuration,
// mapping item id to per-item hash, modification and status metadata.
// The same JSON encoding is persisted locally and uploaded as the remote
// manifest.json, so the two are directly comparable across devices.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
)

// CurrentVersion is the manifest schema version this build reads and
// writes. Decoding rejects manifests written by a newer schema.
const CurrentVersion = 1

// Manifest is the sync ledger for one remote target.
type Manifest struct {
	ConfigID    string          `json:"configId"`
	LastUpdated int64           `json:"lastUpdated"`
	Version     int             `json:"version"`
	Items       map[string]Item `json:"items"`
}

// New creates an empty manifest for the given configuration.
func New(configID string) *Manifest {
	return &Manifest{
		ConfigID: configID,
		Version:  CurrentVersion,
		Items:    make(map[string]Item),
	}
}

// Add inserts or replaces an item. Item ids are unique per manifest;
// re-adding an id overwrites the previous entry.
func (m *Manifest) Add(it Item) {
	if m.Items == nil {
		m.Items = make(map[string]Item)
	}

	m.Items[it.ID] = it
}

// Get returns the item with the given id and whether it exists.
func (m *Manifest) Get(id string) (Item, bool) {
	it, ok := m.Items[id]
	return it, ok
}

// Clone returns a deep copy. Used by the builder so an in-progress
// rebuild never mutates the manifest a caller still holds.
func (m *Manifest) Clone() *Manifest {
	c := &Manifest{
		ConfigID:    m.ConfigID,
		LastUpdated: m.LastUpdated,
		Version:     m.Version,
		Items:       make(map[string]Item, len(m.Items)),
	}

	for id, it := range m.Items {
		if it.RemoteModified != nil {
			v := *it.RemoteModified
			it.RemoteModified = &v
		}

		if it.RemoteHash != nil {
			v := *it.RemoteHash
			it.RemoteHash = &v
		}

		if it.Metadata != nil {
			v := *it.Metadata
			it.Metadata = &v
		}

		c.Items[id] = it
	}

	return c
}

// SortedIDs returns all item ids in lexical order. Iterating the Items
// map directly is non-deterministic; every engine pass that needs a
// stable order goes through this.
func (m *Manifest) SortedIDs() []string {
	ids := make([]string, 0, len(m.Items))
	for id := range m.Items {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Encode serializes the manifest to its canonical JSON form.
func (m *Manifest) Encode() ([]byte, error) {
	if m.Version == 0 {
		m.Version = CurrentVersion
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	return append(data, '\n'), nil
}

// Decode parses a manifest from its JSON form, rejecting schema versions
// newer than CurrentVersion.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Serialization("decode manifest", err)
	}

	if m.Version > CurrentVersion {
		return nil, apperrors.Serialization("decode manifest",
			fmt.Errorf("%w: version %d", apperrors.ErrManifestVersion, m.Version))
	}

	if m.Items == nil {
		m.Items = make(map[string]Item)
	}

	return &m, nil
}
