package webdav

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/studio-b12/gowebdav"
)

// clientTimeout bounds every WebDAV request. Timeouts are the transport's
// responsibility, not the engine's.
const clientTimeout = 60 * time.Second

// Client implements Transport on top of a WebDAV server using basic
// authentication.
type Client struct {
	dav *gowebdav.Client
}

// NewClient creates a client for the given server URL and credentials.
func NewClient(serverURL, username, password string) *Client {
	dav := gowebdav.NewClient(serverURL, username, password)
	dav.SetTimeout(clientTimeout)

	return &Client{dav: dav}
}

// Ping verifies connectivity and credentials with a single round trip.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.dav.Connect(); err != nil {
		return fmt.Errorf("webdav ping: %w", err)
	}

	return nil
}

// Mkdir creates a remote directory.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.dav.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("webdav mkdir %s: %w", path, err)
	}

	return nil
}

// Write replaces the content at path.
func (c *Client) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.dav.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("webdav write %s: %w", path, err)
	}

	return nil
}

// Read returns the content at path, mapping a 404 to fs.ErrNotExist so
// callers can distinguish absence from transport failure.
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.dav.Read(path)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("webdav read %s: %w", path, fs.ErrNotExist)
		}

		return nil, fmt.Errorf("webdav read %s: %w", path, err)
	}

	return data, nil
}

// Remove deletes the file at path.
func (c *Client) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.dav.Remove(path); err != nil {
		return fmt.Errorf("webdav remove %s: %w", path, err)
	}

	return nil
}

// ReadDir lists the entries under path.
func (c *Client) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := c.dav.ReadDir(path)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("webdav readdir %s: %w", path, fs.ErrNotExist)
		}

		return nil, fmt.Errorf("webdav readdir %s: %w", path, err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, DirEntry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}

	return entries, nil
}
