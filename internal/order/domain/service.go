package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/gymcore/pkg/db/pagination"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListMine(ctx context.Context, req ListRequest) (ListResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
	CancelOwn(ctx context.Context, id string) (*Response, error)
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CreateRequest struct {
	Items []ItemRequest `json:"items"`
	Notes *string       `json:"notes"`
}

type UpdateStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type ListRequest struct {
	BuyerID   string
	Status    string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

type Response struct {
	ID          string         `json:"id"`
	GymID       string         `json:"gym_id"`
	BuyerID     string         `json:"buyer_id"`
	Number      string         `json:"number"`
	Status      string         `json:"status"`
	TotalAmount int64          `json:"total_amount"`
	Notes       *string        `json:"notes,omitempty"`
	Items       []ItemResponse `json:"items,omitempty"`
	PreparedAt  *time.Time     `json:"prepared_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var (
	ErrInvalidGym        = errors.New("invalid_gym")
	ErrInvalidBuyer      = errors.New("invalid_buyer")
	ErrInvalidID         = errors.New("invalid_id")
	ErrEmptyOrder        = errors.New("empty_order")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidProduct    = errors.New("invalid_product")
	ErrProductNotFound   = errors.New("product_not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrAmountOverflow    = errors.New("amount_overflow")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not_found")
)
