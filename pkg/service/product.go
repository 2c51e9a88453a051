package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Product, error)
	List(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	Delete(ctx context.Context, id uint) error
}

type ProductInput struct {
	Name          string
	Description   string
	Price         float64
	StockQuantity int
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name          *string
	Description   *string
	Price         *float64
	StockQuantity *int
}

type ProductService struct {
	repo   ProductRepository
	cache  ReportCache
	audit  AuditLogger
	logger *zap.Logger
}

func NewProductService(repo ProductRepository, cache ReportCache, audit AuditLogger, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, cache: cache, audit: audit, logger: logger}
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, apperr.Validation("product name is required")
	}
	if in.Price <= 0 {
		return nil, apperr.Validation("price must be positive")
	}
	if in.StockQuantity < 0 {
		return nil, apperr.Validation("stock quantity must be non-negative")
	}

	product := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to create product", zap.String("name", in.Name), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	s.invalidateSnapshot(ctx)
	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "create_product", "product", fmt.Sprint(product.ID), map[string]interface{}{
			"name":  product.Name,
			"price": product.Price,
		})
	}

	s.logger.Info("product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error) {
	updates := make(map[string]interface{})
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("product name cannot be empty")
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, apperr.Validation("price must be positive")
		}
		updates["price"] = *in.Price
	}
	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			return nil, apperr.Validation("stock quantity must be non-negative")
		}
		updates["stock_quantity"] = *in.StockQuantity
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("no fields to update")
	}

	product, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to update product", zap.Uint("product_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	s.invalidateSnapshot(ctx)
	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "update_product", "product", fmt.Sprint(id), map[string]interface{}{
			"fields": len(updates),
		})
	}
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to retrieve product", zap.Uint("product_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, error) {
	products, err := s.repo.List(ctx, f, offset, limit)
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return products, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domainError(err) {
			return err
		}
		s.logger.Error("failed to delete product", zap.Uint("product_id", id), zap.Error(err))
		return apperr.ErrPersistence
	}

	s.invalidateSnapshot(ctx)
	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "delete_product", "product", fmt.Sprint(id), nil)
	}
	return nil
}

func (s *ProductService) invalidateSnapshot(ctx context.Context) {
	if s.cache != nil {
		s.cache.Del(ctx, stockSnapshotKey)
	}
}
