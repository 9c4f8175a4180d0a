package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DB is the SQLite-backed Store implementation.
type DB struct {
	db *gorm.DB
}

// Open opens (and migrates) the journal database at path.
func Open(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	if err := db.AutoMigrate(&Journal{}, &Entry{}, &Attachment{}); err != nil {
		return nil, fmt.Errorf("migrating journal db: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("unwrapping journal db: %w", err)
	}

	return sqlDB.Close()
}

// Journal returns a journal by id, or nil if not found.
func (d *DB) Journal(ctx context.Context, id string) (*Journal, error) {
	var j Journal

	err := d.db.WithContext(ctx).First(&j, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading journal %s: %w", id, err)
	}

	return &j, nil
}

// JournalsModifiedSince returns the journals in ids modified strictly
// after since.
func (d *DB) JournalsModifiedSince(ctx context.Context, since int64, ids []string) ([]Journal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []Journal

	err := d.db.WithContext(ctx).
		Where("id IN ? AND modified_at > ?", ids, since).
		Order("modified_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying modified journals: %w", err)
	}

	return out, nil
}

// Entry returns an entry by id with attachments loaded, or nil if not
// found.
func (d *DB) Entry(ctx context.Context, id string) (*Entry, error) {
	var e Entry

	err := d.db.WithContext(ctx).Preload("Attachments").First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", id, err)
	}

	return &e, nil
}

// EntriesForJournal returns all entries of a journal.
func (d *DB) EntriesForJournal(ctx context.Context, journalID string) ([]Entry, error) {
	var out []Entry

	err := d.db.WithContext(ctx).
		Preload("Attachments").
		Where("journal_id = ?", journalID).
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying entries for journal %s: %w", journalID, err)
	}

	return out, nil
}

// EntriesModifiedSince returns the journal's entries modified strictly
// after since. The filter runs in SQL so unchanged entries are never
// loaded, which keeps incremental manifest builds cheap.
func (d *DB) EntriesModifiedSince(ctx context.Context, journalID string, since int64) ([]Entry, error) {
	var out []Entry

	err := d.db.WithContext(ctx).
		Preload("Attachments").
		Where("journal_id = ? AND modified_at > ?", journalID, since).
		Order("modified_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying modified entries for journal %s: %w", journalID, err)
	}

	return out, nil
}

// SaveJournal inserts or fully replaces a journal keyed by id.
func (d *DB) SaveJournal(ctx context.Context, j *Journal) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(j).Error
	if err != nil {
		return fmt.Errorf("saving journal %s: %w", j.ID, err)
	}

	return nil
}

// SaveEntry inserts or fully replaces an entry. Attachment rows are
// replaced wholesale: the incoming record is the complete truth for the
// entry, so stale local attachment rows are dropped first.
func (d *DB) SaveEntry(ctx context.Context, e *Entry) error {
	for i := range e.Attachments {
		e.Attachments[i].EntryID = e.ID
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", e.ID).Delete(&Attachment{}).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
			Omit("Attachments").Create(e).Error; err != nil {
			return err
		}

		if len(e.Attachments) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&e.Attachments).Error
	})
	if err != nil {
		return fmt.Errorf("saving entry %s: %w", e.ID, err)
	}

	return nil
}
