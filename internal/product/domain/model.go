package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Product is a sellable item of a gym shop. Price is held in minor currency
// units and stock never drops below zero.
type Product struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	GymID         snowflake.ID      `json:"gym_id" gorm:"column:gym_id;not null;index"`
	CategoryID    *snowflake.ID     `json:"category_id,omitempty" gorm:"column:category_id;index"`
	Name          string            `json:"name" gorm:"type:text;not null"`
	Description   *string           `json:"description,omitempty" gorm:"type:text"`
	Price         int64             `json:"price" gorm:"not null;check:chk_products_price,price >= 0"`
	StockQuantity int64             `json:"stock_quantity" gorm:"column:stock_quantity;not null;default:0;check:chk_products_stock,stock_quantity >= 0"`
	IsActive      bool              `json:"is_active" gorm:"column:is_active;not null;default:true"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
