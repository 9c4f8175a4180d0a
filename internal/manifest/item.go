package manifest

// ItemType identifies what kind of record a sync item tracks.
type ItemType string

const (
	TypeJournal    ItemType = "journal"
	TypeEntry      ItemType = "entry"
	TypeAttachment ItemType = "attachment"
	TypeManifest   ItemType = "manifest"
	TypeUnknown    ItemType = "unknown"
)

// Status is the per-item sync state.
type Status string

const (
	StatusSynced    Status = "synced"
	StatusNeedsSync Status = "needsSync"
	StatusSyncing   Status = "syncing"
	StatusConflict  Status = "conflict"
	StatusError     Status = "error"
)

// Metadata carries type-specific item details. Entry items set ParentID
// to their journal id; attachment items set ParentID to their entry id
// and RelativePath to the local storage path of the file.
type Metadata struct {
	ParentID     string `json:"parentId,omitempty"`
	RelativePath string `json:"relativePath,omitempty"`
}

// Item is one trackable unit: a journal, an entry or an attachment.
// Remote fields are pointers because "never seen on the remote" is
// distinct from zero and is preserved as null in the wire format.
type Item struct {
	ID             string    `json:"id"`
	Type           ItemType  `json:"type"`
	Path           string    `json:"path"`
	LocalModified  int64     `json:"localModified"`
	RemoteModified *int64    `json:"remoteModified"`
	LocalHash      string    `json:"localHash"`
	RemoteHash     *string   `json:"remoteHash"`
	Size           int64     `json:"size"`
	SyncStatus     Status    `json:"syncStatus"`
	LastSynced     int64     `json:"lastSynced"`
	Metadata       *Metadata `json:"metadata"`
}

// NeedsSync reports whether the item has diverged from its remote
// counterpart: no remote version exists, local is strictly newer, the
// hashes differ, or the status was explicitly marked.
func (it Item) NeedsSync() bool {
	if it.SyncStatus == StatusNeedsSync {
		return true
	}

	if it.RemoteModified == nil {
		return true
	}

	if it.LocalModified > *it.RemoteModified {
		return true
	}

	if it.RemoteHash != nil && it.LocalHash != *it.RemoteHash {
		return true
	}

	return false
}

// SetRemote stamps the remote-side hash and modification time, typically
// after a successful upload made both sides identical.
func (it *Item) SetRemote(hash string, modified int64) {
	it.RemoteHash = &hash
	it.RemoteModified = &modified
}
