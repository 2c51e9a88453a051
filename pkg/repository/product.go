package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("name = ?", product.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrProductExists
	}

	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Product, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if f.Search != "" {
		query = query.Where("name LIKE ?", "%"+f.Search+"%")
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if f.InStockOnly {
		query = query.Where("stock_quantity > 0")
	}

	var products []models.Product
	if err := query.Order("name").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListAll loads the full catalog for the stock health report. A plain read is
// enough here, the report tolerates a slightly stale snapshot.
func (r *ProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("stock_quantity DESC").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrProductNotFound
	}
	return nil
}
