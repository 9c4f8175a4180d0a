// Package webdav provides the remote side of the sync engine: a narrow
// transport interface over WebDAV primitives, the remote path layout for
// journal data, and the connection probe used by interactive
// "test connection" flows.
package webdav

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

//go:generate mockgen -source=transport.go -destination=mock_transport.go -package=webdav

// DirEntry describes one remote directory listing entry.
type DirEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Transport is the set of remote primitives the engine consumes. A Write
// fully replaces content; there is no assumption of atomic rename or
// partial-write protection on the server side.
type Transport interface {
	// Ping verifies the server is reachable and credentials are accepted.
	Ping(ctx context.Context) error

	// Mkdir creates a remote directory. Servers report "already exists"
	// the same way as other failures, so callers tolerate errors here.
	Mkdir(ctx context.Context, path string) error

	// Write replaces the content at path.
	Write(ctx context.Context, path string, data []byte) error

	// Read returns the content at path. A missing file is reported as an
	// error satisfying errors.Is(err, fs.ErrNotExist).
	Read(ctx context.Context, path string) ([]byte, error)

	// Remove deletes the file at path.
	Remove(ctx context.Context, path string) error

	// ReadDir lists the entries under path.
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)
}

// IsNotFound reports whether err means the remote file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
