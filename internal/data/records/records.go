// Package records declares the tables persisted in the site database.
package records

import "time"

// Record is the closed set of persisted row types.
type Record interface {
	PageRecord | ImageRecord | MigrationRecord
	TableName() string
	RecordID() int64
}

// PageRecord is one revision of a page in one locale. Rows are never updated; the row with
// the highest id for a (path, locale) pair is the current version.
type PageRecord struct {
	ID        int64        `gorm:"primaryKey;autoIncrement"`
	Path      string       `gorm:"type:text;not null;index:idx_pages_path_locale,priority:1"`
	Locale    string       `gorm:"type:text;not null;index:idx_pages_path_locale,priority:2"`
	Heading   string       `gorm:"type:text;not null"`
	Body      string       `gorm:"type:text;not null"`
	ImageID   *int64       `gorm:"index"`
	Image     *ImageRecord `gorm:"foreignKey:ImageID;constraint:OnDelete:SET NULL"`
	CreatedAt time.Time
}

// TableName defines the table name for page revisions.
func (PageRecord) TableName() string {
	return "pages"
}

// RecordID returns the primary key.
func (r PageRecord) RecordID() int64 {
	return r.ID
}

// ImageRecord is a binary image addressed by a unique permalink.
type ImageRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Permalink string `gorm:"type:text;not null;uniqueIndex:idx_images_permalink"`
	Data      []byte `gorm:"type:blob;not null"`
}

func (ImageRecord) TableName() string {
	return "images"
}

func (r ImageRecord) RecordID() int64 {
	return r.ID
}

// MigrationRecord notes a schema fingerprint applied at a point in time.
type MigrationRecord struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Date string `gorm:"type:text;not null"`
	Hash string `gorm:"type:text;not null"`
}

func (MigrationRecord) TableName() string {
	return "migrations"
}

func (r MigrationRecord) RecordID() int64 {
	return r.ID
}
