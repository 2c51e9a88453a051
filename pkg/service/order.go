package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

const (
	stockSnapshotKey = "stock:snapshot"
	stockSnapshotTTL = 30 * time.Second
)

type OrderRepository interface {
	CreateWithReservation(ctx context.Context, order *models.Order, lines []models.OrderLine) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error)
	List(ctx context.Context, f models.OrderFilter, offset, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error)
	Delete(ctx context.Context, id uint) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	TotalSalesByUser(ctx context.Context, userID uint) (float64, error)
	PlatformStats(ctx context.Context) (*models.PlatformStats, error)
}

// ProductReader is the slice of the product repository the order service
// needs for the stock health report.
type ProductReader interface {
	ListAll(ctx context.Context) ([]models.Product, error)
}

type ShippingAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type OrderService struct {
	orders   OrderRepository
	products ProductReader
	cache    ReportCache
	audit    AuditLogger
	logger   *zap.Logger
}

func NewOrderService(orders OrderRepository, products ProductReader, cache ReportCache, audit AuditLogger, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		cache:    cache,
		audit:    audit,
		logger:   logger,
	}
}

// PlaceOrder validates the request, then hands the cart to the repository for
// the atomic check-and-decrement. Validation failures never touch storage.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, addr ShippingAddress, lines []models.OrderLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, line := range lines {
		if line.ProductID == 0 {
			return nil, apperr.Validation("order item is missing a product id")
		}
		if line.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive for product %d", line.ProductID)
		}
	}
	if addr.Line1 == "" || addr.City == "" || addr.State == "" || addr.PostalCode == "" || addr.Country == "" {
		return nil, apperr.Validation("shipping address is incomplete")
	}

	order := &models.Order{
		UserID:               userID,
		OrderDate:            time.Now(),
		Status:               models.StatusPending,
		ShippingAddressLine1: addr.Line1,
		ShippingAddressLine2: addr.Line2,
		ShippingCity:         addr.City,
		ShippingState:        addr.State,
		ShippingPostalCode:   addr.PostalCode,
		ShippingCountry:      addr.Country,
	}

	if err := s.orders.CreateWithReservation(ctx, order, lines); err != nil {
		if domainError(err) {
			s.logger.Warn("order placement rejected", zap.Uint("user_id", userID), zap.Error(err))
			return nil, err
		}
		s.logger.Error("failed to place order", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if s.cache != nil {
		// stock changed, drop the report snapshot
		s.cache.Del(ctx, stockSnapshotKey)
	}
	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "create_order", "order", fmt.Sprint(order.ID), map[string]interface{}{
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount,
			"items":        len(order.Items),
		})
	}

	s.logger.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Float64("total_amount", order.TotalAmount))
	return order, nil
}

// GetOrder enforces ownership: customers only see their own orders.
func (s *OrderService) GetOrder(ctx context.Context, id, requesterID uint, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to retrieve order", zap.Uint("order_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if !isAdmin && order.UserID != requesterID {
		s.logger.Warn("order access denied", zap.Uint("order_id", id), zap.Uint("user_id", requesterID))
		return nil, apperr.ErrPermissionDenied
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		s.logger.Error("failed to list user orders", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return orders, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f models.OrderFilter, offset, limit int, isAdmin bool) ([]models.Order, error) {
	if !isAdmin {
		return nil, apperr.ErrPermissionDenied
	}

	orders, err := s.orders.List(ctx, f, offset, limit)
	if err != nil {
		s.logger.Error("failed to list orders", zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return orders, nil
}

// UpdateOrderStatus moves an order along its lifecycle. Transitions only go
// forward; cancellation is allowed until the order ships.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uint, status string, isAdmin bool) (*models.Order, error) {
	if !isAdmin {
		return nil, apperr.ErrPermissionDenied
	}
	if !models.ValidStatus(status) {
		return nil, apperr.Validation("invalid status %q", status)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to load order for status update", zap.Uint("order_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if !models.CanTransition(order.Status, status) {
		return nil, apperr.Validation("cannot transition order from %q to %q", order.Status, status)
	}

	updated, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to update order status", zap.Uint("order_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "update_order_status", "order", fmt.Sprint(id), map[string]interface{}{
			"from": order.Status,
			"to":   status,
		})
	}

	s.logger.Info("order status updated", zap.Uint("order_id", id), zap.String("status", status))
	return updated, nil
}

// DeleteOrder lets customers remove their own pending orders; admins may
// remove any order.
func (s *OrderService) DeleteOrder(ctx context.Context, id, requesterID uint, isAdmin bool) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if domainError(err) {
			return err
		}
		s.logger.Error("failed to load order for deletion", zap.Uint("order_id", id), zap.Error(err))
		return apperr.ErrPersistence
	}

	if !isAdmin {
		if order.UserID != requesterID {
			return apperr.ErrPermissionDenied
		}
		if order.Status != models.StatusPending {
			return apperr.ErrPermissionDenied
		}
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		if domainError(err) {
			return err
		}
		s.logger.Error("failed to delete order", zap.Uint("order_id", id), zap.Error(err))
		return apperr.ErrPersistence
	}

	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "delete_order", "order", fmt.Sprint(id), map[string]interface{}{
			"user_id": order.UserID,
		})
	}
	return nil
}

func (s *OrderService) UserStats(ctx context.Context, userID uint) (*models.UserStats, error) {
	count, err := s.orders.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count user orders", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	total, err := s.orders.TotalSalesByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to sum user sales", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	stats := &models.UserStats{OrderCount: count, TotalSales: total}
	if count > 0 {
		stats.AverageOrderValue = total / float64(count)
	}
	return stats, nil
}

func (s *OrderService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	stats, err := s.orders.PlatformStats(ctx)
	if err != nil {
		s.logger.Error("failed to compute platform stats", zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return stats, nil
}

// StockHealth builds the advisory inventory report from a bulk snapshot of
// the catalog. The snapshot is cached briefly; a stale read is acceptable
// here, only the reservation path needs transactional accuracy.
func (s *OrderService) StockHealth(ctx context.Context, f StockFilter) (*StockReport, error) {
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, apperr.Validation("unknown stock category %q", f.Category)
	}
	if f.MinStock != nil && *f.MinStock < 0 {
		return nil, apperr.Validation("min_stock must be non-negative")
	}
	if f.MaxStock != nil && *f.MaxStock < 0 {
		return nil, apperr.Validation("max_stock must be non-negative")
	}

	var products []models.Product
	cached := false
	if s.cache != nil {
		if err := s.cache.GetJSON(ctx, stockSnapshotKey, &products); err == nil {
			cached = true
		}
	}

	if !cached {
		var err error
		products, err = s.products.ListAll(ctx)
		if err != nil {
			s.logger.Error("failed to load product snapshot", zap.Error(err))
			return nil, apperr.ErrPersistence
		}
		if s.cache != nil {
			if err := s.cache.SetJSON(ctx, stockSnapshotKey, products, stockSnapshotTTL); err != nil {
				s.logger.Warn("failed to cache product snapshot", zap.Error(err))
			}
		}
	}

	return BuildStockReport(products, f), nil
}
