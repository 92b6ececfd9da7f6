package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProductCategory groups products of one gym. Names are unique per gym.
type ProductCategory struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	GymID       snowflake.ID `gorm:"column:gym_id;not null;uniqueIndex:ux_product_categories_gym_name,priority:1" json:"gym_id"`
	Name        string       `gorm:"type:varchar(100);not null;uniqueIndex:ux_product_categories_gym_name,priority:2" json:"name"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ProductCategory) TableName() string { return "product_categories" }
