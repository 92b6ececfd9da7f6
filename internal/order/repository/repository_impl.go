package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/order/domain"
	"gorm.io/gorm"
)

const orderColumns = `id, gym_id, buyer_id, number, status, total_amount, notes, prepared_at, completed_at, cancelled_at, created_at, updated_at`

var stampColumns = map[domain.Status]string{
	domain.StatusPrepared:  "prepared_at",
	domain.StatusCompleted: "completed_at",
	domain.StatusCancelled: "cancelled_at",
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.GymID,
		order.BuyerID,
		order.Number,
		order.Status,
		order.TotalAmount,
		order.Notes,
		order.PreparedAt,
		order.CompletedAt,
		order.CancelledAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_items (id, order_id, gym_id, product_id, product_name, quantity, unit_price, line_total, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.OrderID,
			item.GymID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
			item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE gym_id = ? AND id = ? LIMIT 1`,
		gymID,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, gymID, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, gym_id, product_id, product_name, quantity, unit_price, line_total, created_at
		 FROM order_items
		 WHERE gym_id = ? AND order_id = ?
		 ORDER BY id ASC`,
		gymID,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter domain.ListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gym_id = ?`
	args := []any{gymID}
	if filter.BuyerID != nil {
		query += ` AND buyer_id = ?`
		args = append(args, *filter.BuyerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Cursor != nil {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}

	var items []domain.Order
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CompareAndSetStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, from, to domain.Status, at time.Time) (bool, error) {
	column, ok := stampColumns[to]
	if !ok {
		return false, fmt.Errorf("no timestamp column for status %q", to)
	}
	tx := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE orders SET status = ?, %s = ?, updated_at = ?
		 WHERE gym_id = ? AND id = ? AND status = ?`, column),
		to,
		at,
		at,
		gymID,
		id,
		from,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID) (*domain.ProductSnapshot, error) {
	var p domain.ProductSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, price, stock_quantity, is_active
		 FROM products WHERE gym_id = ? AND id = ? LIMIT 1`,
		gymID,
		productID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID, qty int64, at time.Time) (bool, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_quantity = stock_quantity - ?, updated_at = ?
		 WHERE gym_id = ? AND id = ? AND stock_quantity >= ? AND is_active = ?`,
		qty,
		at,
		gymID,
		productID,
		qty,
		true,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) IncrementStock(ctx context.Context, db *gorm.DB, gymID, productID snowflake.ID, qty int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_quantity = stock_quantity + ?, updated_at = ?
		 WHERE gym_id = ? AND id = ?`,
		qty,
		at,
		gymID,
		productID,
	).Error
}
