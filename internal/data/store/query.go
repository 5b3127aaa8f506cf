package store

import (
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Operator is a comparison applied by a Predicate.
type Operator int

const (
	OpEq Operator = iota
	OpNotEq
	OpIn
	OpHasPrefix
	OpNotHasPrefix
)

// Predicate is a parameterized condition on one column.
type Predicate struct {
	Field  string
	Op     Operator
	Value  any
	Values []any
}

// Eq matches rows where field equals value.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// NotEq matches rows where field differs from value.
func NotEq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpNotEq, Value: value}
}

// In matches rows where field is one of values.
func In(field string, values ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// HasPrefix matches rows where the text in field starts with prefix.
func HasPrefix(field, prefix string) Predicate {
	return Predicate{Field: field, Op: OpHasPrefix, Value: prefix}
}

// NotHasPrefix matches rows where the text in field does not start with prefix.
func NotHasPrefix(field, prefix string) Predicate {
	return Predicate{Field: field, Op: OpNotHasPrefix, Value: prefix}
}

// Direction orders results; Descending is -1, anything else sorts ascending.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// Order sorts by one column.
type Order struct {
	Column    string
	Direction Direction
}

// Query describes a read against one collection.
type Query struct {
	Where []Predicate
	// LatestBy keeps only the highest-id row of each group formed by these columns.
	LatestBy   []string
	Order      []Order
	Limit      int
	Offset     int
	Attributes []string
}

func (s *Store) schemaFor(db *gorm.DB, model any) (*schema.Schema, error) {
	parsed, err := schema.Parse(model, &s.schemas, db.NamingStrategy)
	if err != nil {
		return nil, eris.Wrap(err, "parsing record schema")
	}
	return parsed, nil
}

func checkFields(sch *schema.Schema, fields ...string) error {
	for _, field := range fields {
		if _, ok := sch.FieldsByDBName[field]; !ok {
			return eris.Wrapf(ErrUnknownField, "%s.%s", sch.Table, field)
		}
	}
	return nil
}

func (q Query) fields() []string {
	fields := make([]string, 0, len(q.Where)+len(q.LatestBy)+len(q.Order)+len(q.Attributes))
	for _, predicate := range q.Where {
		fields = append(fields, predicate.Field)
	}
	fields = append(fields, q.LatestBy...)
	for _, order := range q.Order {
		fields = append(fields, order.Column)
	}
	return append(fields, q.Attributes...)
}

func applyWhere(tx *gorm.DB, predicates []Predicate) (*gorm.DB, error) {
	for _, predicate := range predicates {
		expression, err := predicate.expression()
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expression)
	}
	return tx, nil
}

func (p Predicate) expression() (clause.Expression, error) {
	column := clause.Column{Table: clause.CurrentTable, Name: p.Field}

	switch p.Op {
	case OpEq:
		return clause.Eq{Column: column, Value: p.Value}, nil
	case OpNotEq:
		return clause.Neq{Column: column, Value: p.Value}, nil
	case OpIn:
		return clause.IN{Column: column, Values: p.Values}, nil
	case OpHasPrefix, OpNotHasPrefix:
		prefix, ok := p.Value.(string)
		if !ok {
			return nil, eris.Errorf("prefix predicate on %s requires a string value", p.Field)
		}
		comparison := "="
		if p.Op == OpNotHasPrefix {
			comparison = "<>"
		}
		return clause.Expr{
			SQL:  "substr(?, 1, ?) " + comparison + " ?",
			Vars: []any{column, utf8.RuneCountInString(prefix), prefix},
		}, nil
	default:
		return nil, eris.Errorf("unsupported operator %d on %s", p.Op, p.Field)
	}
}

func orderColumns(orders []Order) []clause.OrderByColumn {
	columns := make([]clause.OrderByColumn, 0, len(orders))
	for _, order := range orders {
		columns = append(columns, clause.OrderByColumn{
			Column: clause.Column{Table: clause.CurrentTable, Name: order.Column},
			Desc:   order.Direction == Descending,
		})
	}
	return columns
}
