// Package domain models shop orders placed by gym members.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusPrepared        Status = "prepared"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

var transitions = map[Status]map[Status]struct{}{
	StatusPendingApproval: {StatusPrepared: {}, StatusCancelled: {}},
	StatusPrepared:        {StatusCompleted: {}, StatusCancelled: {}},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusPrepared, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	_, ok := transitions[s][next]
	return ok
}

// Order is a purchase by a gym member. Amounts are in minor currency units.
type Order struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	GymID       snowflake.ID `gorm:"column:gym_id;not null;index" json:"gym_id"`
	BuyerID     snowflake.ID `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	Number      string       `gorm:"type:varchar(40);not null;uniqueIndex:ux_orders_number" json:"number"`
	Status      Status       `gorm:"type:varchar(32);not null" json:"status"`
	TotalAmount int64        `gorm:"column:total_amount;not null" json:"total_amount"`
	Notes       *string      `gorm:"type:text" json:"notes,omitempty"`
	PreparedAt  *time.Time   `gorm:"column:prepared_at" json:"prepared_at,omitempty"`
	CompletedAt *time.Time   `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time   `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one product line of an order. UnitPrice and ProductName are
// captured when the order is placed.
type OrderItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID `gorm:"column:order_id;not null;index" json:"order_id"`
	GymID       snowflake.ID `gorm:"column:gym_id;not null" json:"gym_id"`
	ProductID   snowflake.ID `gorm:"column:product_id;not null;index" json:"product_id"`
	ProductName string       `gorm:"column:product_name;type:text;not null" json:"product_name"`
	Quantity    int64        `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	UnitPrice   int64        `gorm:"column:unit_price;not null" json:"unit_price"`
	LineTotal   int64        `gorm:"column:line_total;not null" json:"line_total"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// ProductSnapshot is the product state an order line is priced from.
type ProductSnapshot struct {
	ID            snowflake.ID `gorm:"column:id"`
	Name          string       `gorm:"column:name"`
	Price         int64        `gorm:"column:price"`
	StockQuantity int64        `gorm:"column:stock_quantity"`
	IsActive      bool         `gorm:"column:is_active"`
}
