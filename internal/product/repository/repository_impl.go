package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/product/domain"
	"github.com/smallbiznis/gymcore/pkg/db/option"
	"gorm.io/gorm"
)

const productColumns = `id, gym_id, category_id, name, description, price, stock_quantity, is_active, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.GymID,
		product.CategoryID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.IsActive,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+`
		 FROM products WHERE gym_id = ? AND id = ?`,
		gymID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter domain.ListFilter) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("gym_id = ?", gymID)

	if filter.CategoryID != nil {
		stmt = stmt.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Active != nil {
		stmt = stmt.Where("is_active = ?", *filter.Active)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"name":           true,
		"price":          true,
		"stock_quantity": true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET category_id = ?, name = ?, description = ?, price = ?, stock_quantity = ?, is_active = ?, metadata = ?, updated_at = ?
		 WHERE gym_id = ? AND id = ?`,
		product.CategoryID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.IsActive,
		product.Metadata,
		product.UpdatedAt,
		product.GymID,
		product.ID,
	).Error
}
