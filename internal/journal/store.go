package journal

import "context"

// Store is the read/write record interface the sync engine consumes.
// Modified-since filters are pushed down to the store's query layer so
// incremental manifest builds never scan the full entry set.
type Store interface {
	// Journal returns a journal by id, or nil if not found.
	Journal(ctx context.Context, id string) (*Journal, error)

	// JournalsModifiedSince returns the journals in ids whose ModifiedAt
	// is strictly after since.
	JournalsModifiedSince(ctx context.Context, since int64, ids []string) ([]Journal, error)

	// Entry returns an entry by id with attachments loaded, or nil if
	// not found.
	Entry(ctx context.Context, id string) (*Entry, error)

	// EntriesForJournal returns all entries of a journal with
	// attachments loaded.
	EntriesForJournal(ctx context.Context, journalID string) ([]Entry, error)

	// EntriesModifiedSince returns the journal's entries whose
	// ModifiedAt is strictly after since, attachments loaded.
	EntriesModifiedSince(ctx context.Context, journalID string, since int64) ([]Entry, error)

	// SaveJournal inserts or fully replaces a journal keyed by id.
	SaveJournal(ctx context.Context, j *Journal) error

	// SaveEntry inserts or fully replaces an entry and its attachment
	// rows keyed by id.
	SaveEntry(ctx context.Context, e *Entry) error
}
