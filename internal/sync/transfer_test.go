package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
	"github.com/inkwell-app/inkwell-sync/internal/filestore"
	"github.com/inkwell-app/inkwell-sync/internal/journal"
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
	"github.com/inkwell-app/inkwell-sync/internal/webdav"
)

// fakeTransport is an in-memory webdav.Transport.
type fakeTransport struct {
	files map[string][]byte
	dirs  map[string]bool

	failWrites bool
	failReads  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (f *fakeTransport) Ping(context.Context) error { return nil }

func (f *fakeTransport) Mkdir(_ context.Context, path string) error {
	f.dirs[path] = true
	return nil
}

func (f *fakeTransport) Write(_ context.Context, path string, data []byte) error {
	if f.failWrites {
		return errors.New("503 service unavailable")
	}
	f.files[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeTransport) Read(_ context.Context, path string) ([]byte, error) {
	if f.failReads {
		return nil, errors.New("503 service unavailable")
	}
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (f *fakeTransport) Remove(_ context.Context, path string) error {
	delete(f.files, path)
	return nil
}

func (f *fakeTransport) ReadDir(_ context.Context, path string) ([]webdav.DirEntry, error) {
	if !f.dirs[path] {
		return nil, fmt.Errorf("readdir %s: %w", path, fs.ErrNotExist)
	}
	return nil, nil
}

func testTransfer(t *testing.T, store journal.Store, remote webdav.Transport) (*Transfer, *filestore.Store) {
	t.Helper()
	files := filestore.NewStore(t.TempDir())
	return NewTransfer(store, files, remote, webdav.NewLayout("/sync"), testLogger()), files
}

func entryItem(e *journal.Entry) manifest.Item {
	return manifest.Item{
		ID:       e.ID,
		Type:     manifest.TypeEntry,
		Path:     webdav.EntryPath(e.ID, e.Created()),
		Metadata: &manifest.Metadata{ParentID: e.JournalID},
	}
}

// --- uploads ---

func TestUpload_EntryWritesCanonicalJSON(t *testing.T) {
	store := newFakeStore()
	e := seedEntry(store, "e1", "j1", 150)

	remote := newFakeTransport()
	tr, _ := testTransfer(t, store, remote)

	require.NoError(t, tr.Upload(context.Background(), entryItem(e)))

	want, err := e.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, want, remote.files["/sync/"+webdav.EntryPath("e1", e.Created())])
}

func TestUpload_JournalWritesCanonicalJSON(t *testing.T) {
	store := newFakeStore()
	j := seedJournal(store, "j1", 100)

	remote := newFakeTransport()
	tr, _ := testTransfer(t, store, remote)

	it := manifest.Item{ID: "j1", Type: manifest.TypeJournal, Path: webdav.JournalPath("j1")}
	require.NoError(t, tr.Upload(context.Background(), it))

	want, err := j.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, want, remote.files["/sync/journals/j1.json"])
}

func TestUpload_MissingRecordIsMissingFileError(t *testing.T) {
	remote := newFakeTransport()
	tr, _ := testTransfer(t, newFakeStore(), remote)

	it := manifest.Item{ID: "ghost", Type: manifest.TypeEntry, Path: "entries/1970/01/ghost.json"}
	err := tr.Upload(context.Background(), it)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingFile, apperrors.KindOf(err))
}

func TestUpload_AttachmentReadsLocalFile(t *testing.T) {
	store := newFakeStore()
	remote := newFakeTransport()
	tr, files := testTransfer(t, store, remote)

	content := []byte("jpeg bytes")
	_, err := files.SaveFile("photos/cat.jpg", content)
	require.NoError(t, err)

	it := manifest.Item{
		ID:       "a1",
		Type:     manifest.TypeAttachment,
		Path:     "photos/2024/03/07/e1/cat.jpg",
		Metadata: &manifest.Metadata{ParentID: "e1", RelativePath: "photos/cat.jpg"},
	}
	require.NoError(t, tr.Upload(context.Background(), it))

	assert.Equal(t, content, remote.files["/sync/photos/2024/03/07/e1/cat.jpg"])
}

func TestUpload_AttachmentMissingLocalFile(t *testing.T) {
	tr, _ := testTransfer(t, newFakeStore(), newFakeTransport())

	it := manifest.Item{
		ID:       "a1",
		Type:     manifest.TypeAttachment,
		Path:     "photos/2024/03/07/e1/cat.jpg",
		Metadata: &manifest.Metadata{RelativePath: "photos/cat.jpg"},
	}
	err := tr.Upload(context.Background(), it)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingFile, apperrors.KindOf(err))
}

func TestUpload_AttachmentWithoutRelativePath(t *testing.T) {
	tr, _ := testTransfer(t, newFakeStore(), newFakeTransport())

	it := manifest.Item{ID: "a1", Type: manifest.TypeAttachment, Path: "photos/x.jpg"}
	err := tr.Upload(context.Background(), it)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingRelativePath)
	assert.Equal(t, apperrors.KindMissingFile, apperrors.KindOf(err))
}

func TestUpload_TransportFailure(t *testing.T) {
	store := newFakeStore()
	e := seedEntry(store, "e1", "j1", 150)

	remote := newFakeTransport()
	remote.failWrites = true
	tr, _ := testTransfer(t, store, remote)

	err := tr.Upload(context.Background(), entryItem(e))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestUpload_UnsupportedType(t *testing.T) {
	tr, _ := testTransfer(t, newFakeStore(), newFakeTransport())

	err := tr.Upload(context.Background(), manifest.Item{ID: "x", Type: manifest.TypeUnknown})
	require.Error(t, err)
}

// --- downloads ---

func TestDownload_EntrySavesToStore(t *testing.T) {
	src := newFakeStore()
	e := seedEntry(src, "e1", "j1", 150)
	data, err := e.CanonicalJSON()
	require.NoError(t, err)

	remote := newFakeTransport()
	remote.files["/sync/"+webdav.EntryPath("e1", e.Created())] = data

	dst := newFakeStore()
	tr, _ := testTransfer(t, dst, remote)

	require.NoError(t, tr.Download(context.Background(), entryItem(e)))

	got, err := dst.Entry(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.Body, got.Body)
}

func TestDownload_JournalSavesToStore(t *testing.T) {
	j := &journal.Journal{ID: "j1", Name: "Travel", CreatedAt: 1, ModifiedAt: 100}
	data, err := j.CanonicalJSON()
	require.NoError(t, err)

	remote := newFakeTransport()
	remote.files["/sync/journals/j1.json"] = data

	dst := newFakeStore()
	tr, _ := testTransfer(t, dst, remote)

	it := manifest.Item{ID: "j1", Type: manifest.TypeJournal, Path: webdav.JournalPath("j1")}
	require.NoError(t, tr.Download(context.Background(), it))

	got, err := dst.Journal(context.Background(), "j1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Travel", got.Name)
}

func TestDownload_MalformedRecordIsSerializationError(t *testing.T) {
	remote := newFakeTransport()
	remote.files["/sync/journals/j1.json"] = []byte("{broken")

	tr, _ := testTransfer(t, newFakeStore(), remote)

	it := manifest.Item{ID: "j1", Type: manifest.TypeJournal, Path: webdav.JournalPath("j1")}
	err := tr.Download(context.Background(), it)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindSerialization, apperrors.KindOf(err))
}

func TestDownload_MissingRemoteFileIsMissingFileError(t *testing.T) {
	tr, _ := testTransfer(t, newFakeStore(), newFakeTransport())

	it := manifest.Item{ID: "j1", Type: manifest.TypeJournal, Path: webdav.JournalPath("j1")}
	err := tr.Download(context.Background(), it)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingFile, apperrors.KindOf(err))
}

func TestDownload_TransportFailure(t *testing.T) {
	remote := newFakeTransport()
	remote.failReads = true
	tr, _ := testTransfer(t, newFakeStore(), remote)

	it := manifest.Item{ID: "j1", Type: manifest.TypeJournal, Path: webdav.JournalPath("j1")}
	err := tr.Download(context.Background(), it)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestDownload_AttachmentSavesToFileStore(t *testing.T) {
	remote := newFakeTransport()
	remote.files["/sync/photos/2024/03/07/e1/cat.jpg"] = []byte("jpeg bytes")

	tr, files := testTransfer(t, newFakeStore(), remote)

	it := manifest.Item{
		ID:       "a1",
		Type:     manifest.TypeAttachment,
		Path:     "photos/2024/03/07/e1/cat.jpg",
		Metadata: &manifest.Metadata{ParentID: "e1", RelativePath: "photos/cat.jpg"},
	}
	require.NoError(t, tr.Download(context.Background(), it))

	got, err := files.ReadFile("photos/cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), got)
}
