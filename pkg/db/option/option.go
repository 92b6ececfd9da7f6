// Package option holds composable query modifiers for the generic store.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryFunc func(db *gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithOrder sorts by column. Direction defaults to ascending.
func WithOrder(column string, desc bool) QueryOption {
	column = strings.TrimSpace(column)
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if column == "" {
			return db
		}
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", column, dir))
	})
}

func WithLimit(limit int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}

// WithWhere adds a raw condition. Use for predicates the zero-value struct
// filter cannot express, such as boolean false.
func WithWhere(query string, args ...any) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// SortBy is a validated sort column and direction.
type SortBy struct {
	Column string
	Desc   bool
}

// WithQuerySortBy resolves user supplied sort parameters against an
// allowlist. Unknown columns fall back to created_at ascending.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) SortBy {
	column := strings.ToLower(strings.TrimSpace(sortBy))
	if !allowed[column] {
		column = "created_at"
	}
	return SortBy{
		Column: column,
		Desc:   strings.EqualFold(strings.TrimSpace(orderBy), "desc"),
	}
}

func WithSortBy(s SortBy) QueryOption {
	return WithOrder(s.Column, s.Desc)
}
