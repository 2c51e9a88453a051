package service

import (
	"math"
	"time"

	"github.com/example/storefront/pkg/models"
)

// Stock level thresholds. A product is "critical" at 1-5 units, "low" at
// 6-10, "medium" at 11-50 and "high" above that. The low_stock *category*
// in the report spans 1-10, covering the critical and low tiers; the low
// tier keeps its own 6-10 range inside the distribution. The two share a
// name but not a boundary, which is intentional and mirrors the report's
// public contract.
const (
	criticalStockThreshold = 5
	lowStockThreshold      = 10
	mediumStockThreshold   = 50
)

const (
	CategoryAvailable  = "available"
	CategoryLow        = "low"
	CategoryOutOfStock = "out_of_stock"
	CategoryCritical   = "critical"
	CategoryMedium     = "medium"
	CategoryHigh       = "high"
)

// StockFilter narrows the report to a category and/or a stock range.
type StockFilter struct {
	Category string
	MinStock *int
	MaxStock *int
}

type StockProduct struct {
	ProductID     uint    `json:"product_id"`
	Name          string  `json:"name"`
	StockQuantity int     `json:"stock_quantity"`
	Price         float64 `json:"price"`
	StockValue    float64 `json:"stock_value"`
}

type StockSummary struct {
	TotalProducts         int     `json:"total_products"`
	ProductsWithStock     int     `json:"products_with_stock"`
	ProductsLowStock      int     `json:"products_low_stock"`
	ProductsOutOfStock    int     `json:"products_out_of_stock"`
	StockHealthPercentage float64 `json:"stock_health_percentage"`
}

type StockCategories struct {
	AvailableStock []StockProduct `json:"available_stock"`
	LowStock       []StockProduct `json:"low_stock"`
	OutOfStock     []StockProduct `json:"out_of_stock"`
}

type StockDistribution struct {
	HighStock     []StockProduct `json:"high_stock"`
	MediumStock   []StockProduct `json:"medium_stock"`
	CriticalStock []StockProduct `json:"critical_stock"`
}

type StockAlerts struct {
	LowStockAlerts      int `json:"low_stock_alerts"`
	OutOfStockAlerts    int `json:"out_of_stock_alerts"`
	CriticalStockAlerts int `json:"critical_stock_alerts"`
}

type StockReport struct {
	Summary      StockSummary      `json:"summary"`
	Categories   StockCategories   `json:"stock_categories"`
	Distribution StockDistribution `json:"stock_distribution"`
	Alerts       StockAlerts       `json:"alerts"`
	GeneratedAt  time.Time         `json:"timestamp"`
}

// ValidCategory reports whether c is a recognized filter category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryAvailable, CategoryLow, CategoryOutOfStock, CategoryCritical, CategoryMedium, CategoryHigh:
		return true
	}
	return false
}

func inCategory(stock int, category string) bool {
	switch category {
	case CategoryAvailable:
		return stock > 0
	case CategoryLow:
		return stock >= 1 && stock <= lowStockThreshold
	case CategoryOutOfStock:
		return stock == 0
	case CategoryCritical:
		return stock >= 1 && stock <= criticalStockThreshold
	case CategoryMedium:
		return stock > lowStockThreshold && stock <= mediumStockThreshold
	case CategoryHigh:
		return stock > mediumStockThreshold
	}
	return true
}

// BuildStockReport buckets a product snapshot into the stock health report.
// It is a pure function of the snapshot and the filter: the category filter
// restricts the product set first, the min/max bounds compose on top, and all
// counts are derived from whatever survives.
func BuildStockReport(products []models.Product, f StockFilter) *StockReport {
	report := &StockReport{
		Categories: StockCategories{
			AvailableStock: make([]StockProduct, 0),
			LowStock:       make([]StockProduct, 0),
			OutOfStock:     make([]StockProduct, 0),
		},
		Distribution: StockDistribution{
			HighStock:     make([]StockProduct, 0),
			MediumStock:   make([]StockProduct, 0),
			CriticalStock: make([]StockProduct, 0),
		},
		GeneratedAt: time.Now(),
	}

	for _, p := range products {
		stock := p.StockQuantity
		if f.Category != "" && !inCategory(stock, f.Category) {
			continue
		}
		if f.MinStock != nil && stock < *f.MinStock {
			continue
		}
		if f.MaxStock != nil && stock > *f.MaxStock {
			continue
		}

		entry := StockProduct{
			ProductID:     p.ID,
			Name:          p.Name,
			StockQuantity: stock,
			Price:         p.Price,
			StockValue:    p.Price * float64(stock),
		}

		report.Summary.TotalProducts++

		switch {
		case stock == 0:
			report.Categories.OutOfStock = append(report.Categories.OutOfStock, entry)
			report.Summary.ProductsOutOfStock++
			continue
		case stock <= lowStockThreshold:
			report.Categories.LowStock = append(report.Categories.LowStock, entry)
			report.Summary.ProductsLowStock++
		}

		report.Categories.AvailableStock = append(report.Categories.AvailableStock, entry)
		report.Summary.ProductsWithStock++

		switch {
		case stock <= criticalStockThreshold:
			report.Distribution.CriticalStock = append(report.Distribution.CriticalStock, entry)
		case stock <= lowStockThreshold:
			// low tier: counted in the low_stock category above, not listed
			// separately in the distribution payload
		case stock <= mediumStockThreshold:
			report.Distribution.MediumStock = append(report.Distribution.MediumStock, entry)
		default:
			report.Distribution.HighStock = append(report.Distribution.HighStock, entry)
		}
	}

	if report.Summary.TotalProducts > 0 {
		pct := float64(report.Summary.ProductsWithStock) / float64(report.Summary.TotalProducts) * 100
		report.Summary.StockHealthPercentage = math.Round(pct*10) / 10
	}

	report.Alerts = StockAlerts{
		LowStockAlerts:      report.Summary.ProductsLowStock,
		OutOfStockAlerts:    report.Summary.ProductsOutOfStock,
		CriticalStockAlerts: len(report.Distribution.CriticalStock),
	}

	return report
}
