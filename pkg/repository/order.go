package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithReservation places an order as a single transaction: every
// referenced product row is read under FOR UPDATE, requested quantities are
// checked against stock, and only when every line fits are the decrements and
// the order insert committed. Concurrent placements against the same product
// serialize on the row lock, so stock can never go below zero.
//
// All violating lines are collected before aborting, so the caller sees the
// complete list of shortages, not just the first one.
func (r *OrderRepository) CreateWithReservation(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issues []apperr.StockIssue
		items := make([]models.OrderItem, 0, len(lines))
		var total float64

		for _, line := range lines {
			var product models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, "id = ?", line.ProductID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %d: %w", line.ProductID, apperr.ErrProductNotFound)
				}
				return err
			}

			if product.StockQuantity < line.Quantity {
				issues = append(issues, apperr.StockIssue{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   line.Quantity,
					Available:   product.StockQuantity,
				})
				continue
			}

			subtotal := product.Price * float64(line.Quantity)
			total += subtotal
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				Subtotal:  subtotal,
			})
		}

		if len(issues) > 0 {
			return &apperr.InsufficientStockError{Issues: issues}
		}

		for _, item := range items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("stock changed under lock for product %d", item.ProductID)
			}
		}

		order.TotalAmount = total
		order.Items = items
		return tx.Create(order).Error
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter, offset, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.StartDate != nil {
		query = query.Where("order_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("order_date <= ?", *f.EndDate)
	}
	if f.MinAmount != nil {
		query = query.Where("total_amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *f.MaxAmount)
	}

	var orders []models.Order
	if err := query.Order("order_date DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(order).Update("status", status).Error; err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrOrderNotFound
		}
		return nil
	})
}

func (r *OrderRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *OrderRepository) TotalSalesByUser(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *OrderRepository) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{OrdersByStatus: make(map[string]int64)}

	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&stats.TotalOrders).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalSales).Error
	if err != nil {
		return nil, err
	}

	rows, err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = n
	}
	return stats, rows.Err()
}
