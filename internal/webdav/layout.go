package webdav

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Remote directory names under the base path. The manifest lives at the
// base; entries are bucketed by year/month and attachments by
// year/month/day/entryID, so directory listings stay small even for
// journals spanning years.
const (
	journalsDir    = "journals"
	entriesDir     = "entries"
	attachmentsDir = "attachments"
	photosDir      = "photos"
	audioDir       = "audio"
	scratchDir     = ".tmp"

	manifestName = "manifest.json"
)

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".heic": true, ".webp": true,
}

var audioExts = map[string]bool{
	".m4a": true, ".mp3": true, ".wav": true, ".ogg": true, ".aac": true,
}

// Layout maps items to their remote paths under one base directory.
// Path computation is deterministic from an item's id, date and parent;
// nothing else about the remote tree is assumed.
type Layout struct {
	Base string
}

// NewLayout creates a layout rooted at base.
func NewLayout(base string) Layout {
	return Layout{Base: "/" + strings.Trim(base, "/")}
}

// Resolve joins a base-relative item path into a full remote path.
func (l Layout) Resolve(rel string) string {
	return path.Join(l.Base, rel)
}

// ManifestPath returns the remote path of the sync manifest.
func (l Layout) ManifestPath() string {
	return path.Join(l.Base, manifestName)
}

// ScratchPath returns a remote path in the scratch area, used for
// connection probes and other throwaway writes.
func (l Layout) ScratchPath(name string) string {
	return path.Join(l.Base, scratchDir, name)
}

// RequiredDirs returns the fixed set of directories a sync run creates
// up front with idempotent mkdirs.
func (l Layout) RequiredDirs() []string {
	dirs := []string{"", journalsDir, entriesDir, attachmentsDir, photosDir, audioDir, scratchDir}

	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = path.Join(l.Base, d)
	}

	return out
}

// JournalPath returns the base-relative path for a journal record.
func JournalPath(id string) string {
	return path.Join(journalsDir, id+".json")
}

// EntryPath returns the base-relative path for an entry record, bucketed
// by the entry's creation year and month.
func EntryPath(id string, created time.Time) string {
	return path.Join(entriesDir,
		fmt.Sprintf("%04d", created.Year()),
		fmt.Sprintf("%02d", int(created.Month())),
		id+".json")
}

// AttachmentPath returns the base-relative path for an attachment file,
// bucketed by the parent entry's creation date and id. Photos and audio
// get their own subtrees; everything else lands under attachments.
func AttachmentPath(entryID string, created time.Time, name string) string {
	dir := attachmentsDir

	ext := strings.ToLower(path.Ext(name))
	switch {
	case photoExts[ext]:
		dir = photosDir
	case audioExts[ext]:
		dir = audioDir
	}

	return path.Join(dir,
		fmt.Sprintf("%04d", created.Year()),
		fmt.Sprintf("%02d", int(created.Month())),
		fmt.Sprintf("%02d", created.Day()),
		entryID,
		name)
}
