package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	BuyerID *snowflake.ID
	Status  Status
	Cursor  *pagination.TimeCursor
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*Order, error)
	ListItems(ctx context.Context, db *gorm.DB, gymID, orderID snowflake.ID) ([]OrderItem, error)
	List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter ListFilter) ([]Order, error)
	// CompareAndSetStatus moves an order out of from and stamps the
	// timestamp column that belongs to the target status.
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, from, to Status, at time.Time) (bool, error)

	FindProduct(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID) (*ProductSnapshot, error)
	// DecrementStock takes qty units when at least qty are available on an
	// active product and reports whether it did.
	DecrementStock(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID, qty int64, at time.Time) (bool, error)
	IncrementStock(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID, qty int64, at time.Time) error
}
