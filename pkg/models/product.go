package models

import (
	"time"
)

type Product struct {
	ID            uint      `gorm:"primaryKey" json:"product_id"`
	Name          string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

type ProductFilter struct {
	Search      string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
}
