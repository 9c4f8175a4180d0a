package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
	"github.com/inkwell-app/inkwell-sync/internal/filestore"
	"github.com/inkwell-app/inkwell-sync/internal/journal"
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
	"github.com/inkwell-app/inkwell-sync/internal/webdav"
)

// Transfer moves individual items between the local store and the remote
// tree, dispatched on item type. Transfers are idempotent at the item
// level: re-sending unchanged content yields the same end state.
//
// Errors are classified so the orchestrator can isolate per-item
// failures (missing files, malformed records) while aborting on
// transport failures.
type Transfer struct {
	store  journal.Store
	files  *filestore.Store
	remote webdav.Transport
	layout webdav.Layout
	logger *slog.Logger
}

// NewTransfer creates a transfer executor over the given collaborators.
func NewTransfer(store journal.Store, files *filestore.Store, remote webdav.Transport, layout webdav.Layout, logger *slog.Logger) *Transfer {
	return &Transfer{
		store:  store,
		files:  files,
		remote: remote,
		layout: layout,
		logger: logger,
	}
}

// Upload sends the item's local content to its remote path.
func (t *Transfer) Upload(ctx context.Context, it manifest.Item) error {
	switch it.Type {
	case manifest.TypeJournal:
		return t.uploadJournal(ctx, it)
	case manifest.TypeEntry:
		return t.uploadEntry(ctx, it)
	case manifest.TypeAttachment:
		return t.uploadAttachment(ctx, it)
	default:
		return fmt.Errorf("cannot upload item %s: unsupported type %q", it.ID, it.Type)
	}
}

// Download fetches the item's remote content and applies it locally.
func (t *Transfer) Download(ctx context.Context, it manifest.Item) error {
	switch it.Type {
	case manifest.TypeJournal:
		return t.downloadJournal(ctx, it)
	case manifest.TypeEntry:
		return t.downloadEntry(ctx, it)
	case manifest.TypeAttachment:
		return t.downloadAttachment(ctx, it)
	default:
		return fmt.Errorf("cannot download item %s: unsupported type %q", it.ID, it.Type)
	}
}

func (t *Transfer) uploadJournal(ctx context.Context, it manifest.Item) error {
	j, err := t.store.Journal(ctx, it.ID)
	if err != nil {
		return err
	}

	if j == nil {
		return apperrors.MissingFile("upload journal",
			fmt.Errorf("journal %s not found in local store", it.ID))
	}

	data, err := j.CanonicalJSON()
	if err != nil {
		return apperrors.Serialization("upload journal", err)
	}

	return t.writeRemote(ctx, it, data)
}

func (t *Transfer) uploadEntry(ctx context.Context, it manifest.Item) error {
	e, err := t.store.Entry(ctx, it.ID)
	if err != nil {
		return err
	}

	if e == nil {
		return apperrors.MissingFile("upload entry",
			fmt.Errorf("entry %s not found in local store", it.ID))
	}

	data, err := e.CanonicalJSON()
	if err != nil {
		return apperrors.Serialization("upload entry", err)
	}

	return t.writeRemote(ctx, it, data)
}

func (t *Transfer) uploadAttachment(ctx context.Context, it manifest.Item) error {
	rel, err := relativePath(it)
	if err != nil {
		return err
	}

	data, err := t.files.ReadFile(rel)
	if err != nil {
		return apperrors.MissingFile("upload attachment",
			fmt.Errorf("reading %s: %w", rel, err))
	}

	return t.writeRemote(ctx, it, data)
}

func (t *Transfer) downloadJournal(ctx context.Context, it manifest.Item) error {
	data, err := t.readRemote(ctx, it)
	if err != nil {
		return err
	}

	var j journal.Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return apperrors.Serialization("download journal",
			fmt.Errorf("decoding journal %s: %w", it.ID, err))
	}

	if err := t.store.SaveJournal(ctx, &j); err != nil {
		return err
	}

	t.logger.Debug("downloaded journal", slog.String("id", j.ID))

	return nil
}

func (t *Transfer) downloadEntry(ctx context.Context, it manifest.Item) error {
	data, err := t.readRemote(ctx, it)
	if err != nil {
		return err
	}

	var e journal.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return apperrors.Serialization("download entry",
			fmt.Errorf("decoding entry %s: %w", it.ID, err))
	}

	if err := t.store.SaveEntry(ctx, &e); err != nil {
		return err
	}

	t.logger.Debug("downloaded entry", slog.String("id", e.ID))

	return nil
}

func (t *Transfer) downloadAttachment(ctx context.Context, it manifest.Item) error {
	rel, err := relativePath(it)
	if err != nil {
		return err
	}

	data, err := t.readRemote(ctx, it)
	if err != nil {
		return err
	}

	if _, err := t.files.SaveFile(rel, data); err != nil {
		return fmt.Errorf("storing attachment %s: %w", it.ID, err)
	}

	t.logger.Debug("downloaded attachment",
		slog.String("id", it.ID),
		slog.String("path", rel),
		slog.Int("bytes", len(data)),
	)

	return nil
}

func (t *Transfer) writeRemote(ctx context.Context, it manifest.Item, data []byte) error {
	remotePath := t.layout.Resolve(it.Path)

	if err := t.remote.Write(ctx, remotePath, data); err != nil {
		return apperrors.Transport("upload", err)
	}

	t.logger.Debug("uploaded",
		slog.String("id", it.ID),
		slog.String("type", string(it.Type)),
		slog.String("remote", remotePath),
		slog.Int("bytes", len(data)),
	)

	return nil
}

func (t *Transfer) readRemote(ctx context.Context, it manifest.Item) ([]byte, error) {
	remotePath := t.layout.Resolve(it.Path)

	data, err := t.remote.Read(ctx, remotePath)
	if err != nil {
		if webdav.IsNotFound(err) {
			return nil, apperrors.MissingFile("download",
				fmt.Errorf("remote %s: %w", remotePath, err))
		}

		return nil, apperrors.Transport("download", err)
	}

	return data, nil
}

// relativePath extracts the local storage path from attachment metadata.
// An attachment item without it cannot be transferred; the item is
// marked errored and the batch continues.
func relativePath(it manifest.Item) (string, error) {
	if it.Metadata == nil || it.Metadata.RelativePath == "" {
		return "", apperrors.MissingFile("transfer attachment",
			fmt.Errorf("item %s: %w", it.ID, apperrors.ErrMissingRelativePath))
	}

	return it.Metadata.RelativePath, nil
}
