package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-app/inkwell-sync/internal/filestore"
	"github.com/inkwell-app/inkwell-sync/internal/hash"
	"github.com/inkwell-app/inkwell-sync/internal/journal"
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
	"github.com/inkwell-app/inkwell-sync/internal/webdav"
)

// Builder scans the local store and produces an updated sync manifest.
// Builds are incremental: only journals and entries modified after the
// existing manifest's watermark are rescanned, and attachment files are
// only re-hashed when their parent entry moved. Hashing every attachment
// on every run is the dominant sync cost; a full scan happens only on
// first sync, when no manifest exists yet.
type Builder struct {
	store     journal.Store
	files     *filestore.Store
	manifests *manifest.Store
	logger    *slog.Logger

	now func() int64
}

// NewBuilder creates a builder over the given collaborators.
func NewBuilder(store journal.Store, files *filestore.Store, manifests *manifest.Store, logger *slog.Logger) *Builder {
	return &Builder{
		store:     store,
		files:     files,
		manifests: manifests,
		logger:    logger,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Build updates existing (nil forces a full scan) with every enabled
// journal, entry and attachment modified since the manifest's watermark,
// stamps a new watermark, and persists the result locally before
// returning so a crash mid-sync does not lose the rescan work.
func (b *Builder) Build(ctx context.Context, existing *manifest.Manifest, configID string, journalIDs []string, withAttachments bool) (*manifest.Manifest, error) {
	var since int64

	built := manifest.New(configID)
	if existing != nil {
		since = existing.LastUpdated
		built = existing.Clone()
	}

	journals, err := b.store.JournalsModifiedSince(ctx, since, journalIDs)
	if err != nil {
		return nil, fmt.Errorf("scanning journals: %w", err)
	}

	for i := range journals {
		if err := b.addJournal(built, &journals[i]); err != nil {
			return nil, err
		}
	}

	// Entries can change without touching their journal row, so the
	// entry scan covers every enabled journal, with the modified-since
	// filter pushed down to the store's query layer.
	var entryCount, attachmentCount int

	for _, jid := range journalIDs {
		entries, err := b.store.EntriesModifiedSince(ctx, jid, since)
		if err != nil {
			return nil, fmt.Errorf("scanning entries for journal %s: %w", jid, err)
		}

		for i := range entries {
			e := &entries[i]
			if err := b.addEntry(built, e); err != nil {
				return nil, err
			}

			entryCount++

			if !withAttachments {
				continue
			}

			for j := range e.Attachments {
				if b.addAttachment(built, e, &e.Attachments[j], since) {
					attachmentCount++
				}
			}
		}
	}

	built.LastUpdated = b.now()

	if err := b.manifests.Save(built); err != nil {
		return nil, fmt.Errorf("persisting built manifest: %w", err)
	}

	b.logger.Info("manifest build complete",
		slog.String("config", configID),
		slog.Int64("since", since),
		slog.Int("journals", len(journals)),
		slog.Int("entries", entryCount),
		slog.Int("attachments", attachmentCount),
		slog.Int("total_items", len(built.Items)),
	)

	return built, nil
}

func (b *Builder) addJournal(m *manifest.Manifest, j *journal.Journal) error {
	data, err := j.CanonicalJSON()
	if err != nil {
		return err
	}

	b.upsert(m, manifest.Item{
		ID:            j.ID,
		Type:          manifest.TypeJournal,
		Path:          webdav.JournalPath(j.ID),
		LocalModified: j.ModifiedAt,
		LocalHash:     hash.Bytes(data),
		Size:          int64(len(data)),
		SyncStatus:    manifest.StatusNeedsSync,
	})

	return nil
}

func (b *Builder) addEntry(m *manifest.Manifest, e *journal.Entry) error {
	data, err := e.CanonicalJSON()
	if err != nil {
		return err
	}

	b.upsert(m, manifest.Item{
		ID:            e.ID,
		Type:          manifest.TypeEntry,
		Path:          webdav.EntryPath(e.ID, e.Created()),
		LocalModified: e.ModifiedAt,
		LocalHash:     hash.Bytes(data),
		Size:          int64(len(data)),
		SyncStatus:    manifest.StatusNeedsSync,
		Metadata:      &manifest.Metadata{ParentID: e.JournalID},
	})

	return nil
}

// addAttachment upserts an attachment item, re-hashing the file only
// when the attachment is new to the manifest or its parent entry moved
// since the watermark. Returns whether an item was added.
func (b *Builder) addAttachment(m *manifest.Manifest, e *journal.Entry, a *journal.Attachment, since int64) bool {
	if a.RelativePath == "" {
		return false
	}

	if _, known := m.Get(a.ID); known && e.ModifiedAt <= since {
		return false
	}

	size := a.Size

	var digest string

	content, err := b.files.ReadFile(a.RelativePath)
	if err != nil {
		// Unreadable file: fall back to a metadata-derived digest
		// instead of failing the whole build.
		b.logger.Warn("attachment unreadable, using metadata hash",
			slog.String("attachment", a.ID),
			slog.String("path", a.RelativePath),
			slog.String("error", err.Error()),
		)

		digest = hash.Metadata(a.ID, a.Name, a.Size)
	} else {
		digest = hash.Bytes(content)
		size = int64(len(content))
	}

	b.upsert(m, manifest.Item{
		ID:            a.ID,
		Type:          manifest.TypeAttachment,
		Path:          webdav.AttachmentPath(e.ID, e.Created(), a.Name),
		LocalModified: e.ModifiedAt,
		LocalHash:     digest,
		Size:          size,
		SyncStatus:    manifest.StatusNeedsSync,
		Metadata: &manifest.Metadata{
			ParentID:     e.ID,
			RelativePath: a.RelativePath,
		},
	})

	return true
}

// upsert adds the item, carrying reconciliation history (lastSynced and
// the remote-side view) forward from any previous item with the same id.
func (b *Builder) upsert(m *manifest.Manifest, it manifest.Item) {
	if prev, ok := m.Get(it.ID); ok {
		it.LastSynced = prev.LastSynced
		it.RemoteModified = prev.RemoteModified
		it.RemoteHash = prev.RemoteHash
	} else {
		it.LastSynced = b.now()
	}

	m.Add(it)
}
