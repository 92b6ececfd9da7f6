// Package repository provides a generic gorm-backed store for simple
// entities whose queries are plain equality filters.
package repository

import (
	"context"

	"github.com/smallbiznis/gymcore/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, query *T, values map[string]any) (int64, error)
	Delete(ctx context.Context, query *T) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}
