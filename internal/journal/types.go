// Package journal is the local relational store the sync engine reads
// journals, entries and attachments from. The engine consumes it through
// the narrow Store interface; the GORM/SQLite implementation below is
// what the application wires in.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Journal is one notebook of entries.
type Journal struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	ModifiedAt int64  `gorm:"index" json:"modifiedAt"`
}

// Entry is one dated journal entry, with its attachments embedded so a
// serialized entry carries everything a remote device needs to restore
// the attachment rows.
type Entry struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	JournalID   string       `gorm:"index" json:"journalId"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	CreatedAt   int64        `json:"createdAt"`
	ModifiedAt  int64        `gorm:"index" json:"modifiedAt"`
	Attachments []Attachment `gorm:"foreignKey:EntryID" json:"attachments"`
}

// Attachment is a media file referenced by an entry. RelativePath is the
// file's location in the local file store; an attachment with an empty
// path has no stored content and is never synced.
type Attachment struct {
	ID           string `gorm:"primaryKey" json:"id"`
	EntryID      string `gorm:"index" json:"entryId"`
	Name         string `json:"name"`
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size"`
	CreatedAt    int64  `json:"createdAt"`
}

// NewJournal creates a journal with a fresh id, stamped now.
func NewJournal(name string) *Journal {
	now := time.Now().UnixMilli()

	return &Journal{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NewEntry creates an entry in the given journal with a fresh id,
// stamped now.
func NewEntry(journalID, title, body string) *Entry {
	now := time.Now().UnixMilli()

	return &Entry{
		ID:         uuid.NewString(),
		JournalID:  journalID,
		Title:      title,
		Body:       body,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// CanonicalJSON returns the stable serialization of the journal used for
// content hashing and transfer. encoding/json emits struct fields in
// declaration order, which makes the encoding deterministic.
func (j *Journal) CanonicalJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("serializing journal %s: %w", j.ID, err)
	}

	return data, nil
}

// CanonicalJSON returns the stable serialization of the entry, including
// its attachment records.
func (e *Entry) CanonicalJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("serializing entry %s: %w", e.ID, err)
	}

	return data, nil
}

// Created returns the entry's creation time, used to derive its remote
// storage path.
func (e *Entry) Created() time.Time {
	return time.UnixMilli(e.CreatedAt)
}
