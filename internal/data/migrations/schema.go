package migrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"bezcukru/app/internal/data/records"
)

func models() []interface{} {
	return []interface{}{&records.ImageRecord{}, &records.PageRecord{}, &records.MigrationRecord{}}
}

// Migrate applies the content schema using Gorm's AutoMigrate. A migrations row is appended
// whenever the schema fingerprint differs from the last recorded one.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "content.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Debug("applying content schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("content schema migration failed")
		}
		return eris.Wrap(err, "auto migrating content schema")
	}

	hash, err := Fingerprint(db)
	if err != nil {
		return err
	}

	var last records.MigrationRecord
	err = db.WithContext(ctx).Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return eris.Wrap(err, "reading last migration")
	}

	if last.ID != 0 && last.Hash == hash {
		if logger != nil {
			logger.WithFields(logFields).WithField("hash", hash).Debug("content schema up to date")
		}
		return nil
	}

	entry := records.MigrationRecord{Date: time.Now().UTC().Format(time.RFC3339), Hash: hash}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return eris.Wrap(err, "recording migration")
	}

	if logger != nil {
		logger.WithFields(logFields).WithField("hash", hash).Info("content schema migrated")
	}

	return nil
}

// Fingerprint hashes the table and column names of the content schema.
func Fingerprint(db *gorm.DB) (string, error) {
	cache := &sync.Map{}
	lines := make([]string, 0, len(models()))

	for _, model := range models() {
		parsed, err := schema.Parse(model, cache, db.NamingStrategy)
		if err != nil {
			return "", eris.Wrap(err, "parsing schema for fingerprint")
		}

		columns := append([]string(nil), parsed.DBNames...)
		sort.Strings(columns)
		lines = append(lines, parsed.Table+":"+strings.Join(columns, ","))
	}

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:]), nil
}
