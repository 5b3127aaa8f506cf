package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bezcukru/app/internal/data/records"
)

// InsertResult reports the outcome of InsertOne. RowsAffected is zero when a conflict clause
// suppressed the insert.
type InsertResult struct {
	ID           int64
	RowsAffected int64
}

// InsertOption adjusts an insert statement.
type InsertOption func(tx *gorm.DB) *gorm.DB

// OnConflictDoNothing skips rows that violate a uniqueness constraint.
func OnConflictDoNothing() InsertOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.OnConflict{DoNothing: true})
	}
}

// Get returns the rows of T matching q. An empty slice means no rows matched.
func Get[T records.Record](ctx context.Context, s *Store, q Query) ([]T, error) {
	var zero T
	table := zero.TableName()

	tx, err := prepare[T](ctx, s, q)
	if err != nil {
		s.logError(logrus.Fields{"table": table}, err, "preparing query")
		return nil, err
	}

	rows := make([]T, 0)
	if err := tx.Find(&rows).Error; err != nil {
		s.logError(logrus.Fields{"table": table}, err, "querying records")
		return nil, eris.Wrapf(err, "querying %s", table)
	}

	return rows, nil
}

// GetOne returns the highest-id row matching q, or nil when none does.
func GetOne[T records.Record](ctx context.Context, s *Store, q Query) (*T, error) {
	q.Order = []Order{{Column: "id", Direction: Descending}}
	q.Limit = 1
	q.Offset = 0

	rows, err := Get[T](ctx, s, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Count returns the number of rows of T matching where.
func Count[T records.Record](ctx context.Context, s *Store, where ...Predicate) (int64, error) {
	var zero T
	table := zero.TableName()

	tx, err := prepare[T](ctx, s, Query{Where: where})
	if err != nil {
		s.logError(logrus.Fields{"table": table}, err, "preparing count")
		return 0, err
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		s.logError(logrus.Fields{"table": table}, err, "counting records")
		return 0, eris.Wrapf(err, "counting %s", table)
	}

	return count, nil
}

// InsertOne stores record and returns its id. With OnConflictDoNothing a suppressed insert
// yields a zero result and no error.
func InsertOne[T records.Record](ctx context.Context, s *Store, record *T, opts ...InsertOption) (InsertResult, error) {
	var zero T
	table := zero.TableName()

	if record == nil {
		return InsertResult{}, eris.Errorf("inserting into %s: record is nil", table)
	}

	db, err := s.db(ctx)
	if err != nil {
		return InsertResult{}, err
	}

	tx := db.Omit(clause.Associations)
	for _, opt := range opts {
		tx = opt(tx)
	}

	result := tx.Create(record)
	if result.Error != nil {
		s.logError(logrus.Fields{"table": table}, result.Error, "inserting record")
		return InsertResult{}, eris.Wrapf(result.Error, "inserting into %s", table)
	}

	if result.RowsAffected == 0 {
		return InsertResult{}, nil
	}

	return InsertResult{ID: (*record).RecordID(), RowsAffected: result.RowsAffected}, nil
}

// RemoveByIDs deletes the rows with the given ids in one transaction. When the number of
// deleted rows differs from len(ids) nothing is deleted and ErrDeleteMismatch is returned.
func RemoveByIDs[T records.Record](ctx context.Context, s *Store, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	var zero T
	table := zero.TableName()

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where(clause.IN{Column: clause.PrimaryColumn, Values: values}).Delete(new(T))
		if result.Error != nil {
			return eris.Wrapf(result.Error, "deleting from %s", table)
		}
		if result.RowsAffected != int64(len(ids)) {
			return eris.Wrapf(ErrDeleteMismatch, "%s: requested %d, matched %d", table, len(ids), result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		s.logError(logrus.Fields{"table": table, "ids": ids}, err, "removing records")
		return err
	}

	return nil
}

func prepare[T records.Record](ctx context.Context, s *Store, q Query) (*gorm.DB, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	sch, err := s.schemaFor(db, new(T))
	if err != nil {
		return nil, err
	}
	if err := checkFields(sch, q.fields()...); err != nil {
		return nil, err
	}

	tx := db.Model(new(T))

	if len(q.LatestBy) > 0 {
		latest, err := applyWhere(db.Model(new(T)).Select("MAX(id)"), q.Where)
		if err != nil {
			return nil, err
		}
		latest = latest.Group(strings.Join(q.LatestBy, ", "))
		tx = tx.Where("id IN (?)", latest)
	} else {
		tx, err = applyWhere(tx, q.Where)
		if err != nil {
			return nil, err
		}
	}

	if len(q.Attributes) > 0 {
		tx = tx.Select(q.Attributes)
	}

	if len(q.Order) > 0 {
		for _, column := range orderColumns(q.Order) {
			tx = tx.Order(column)
		}
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	return tx, nil
}
