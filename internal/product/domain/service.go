package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type ListRequest struct {
	CategoryID string
	Name       string
	Active     *bool
	SortBy     string
	OrderBy    string
}

type CreateRequest struct {
	CategoryID    *string        `json:"category_id"`
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	Price         int64          `json:"price"`
	StockQuantity int64          `json:"stock_quantity"`
	IsActive      *bool          `json:"is_active"`
	Metadata      map[string]any `json:"metadata"`
}

// UpdateRequest patches a product. A CategoryID pointing at an empty string
// detaches the product from its category.
type UpdateRequest struct {
	ID            string         `json:"-"`
	CategoryID    *string        `json:"category_id"`
	Name          *string        `json:"name"`
	Description   *string        `json:"description"`
	Price         *int64         `json:"price"`
	StockQuantity *int64         `json:"stock_quantity"`
	IsActive      *bool          `json:"is_active"`
	Metadata      map[string]any `json:"metadata"`
}

type Response struct {
	ID            string         `json:"id"`
	GymID         string         `json:"gym_id"`
	CategoryID    *string        `json:"category_id,omitempty"`
	Name          string         `json:"name"`
	Description   *string        `json:"description,omitempty"`
	Price         int64          `json:"price"`
	StockQuantity int64          `json:"stock_quantity"`
	IsActive      bool           `json:"is_active"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MaxPrice bounds a unit price in minor units so order totals stay well
// inside int64.
const MaxPrice int64 = 1_000_000_000_000

var (
	ErrInvalidGym      = errors.New("invalid_gym")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock_quantity")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
)
