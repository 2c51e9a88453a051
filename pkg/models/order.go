package models

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var statusRank = map[string]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order may move from one status to the
// next. The lifecycle only moves forward: pending -> confirmed -> shipped ->
// delivered. Cancellation is allowed while the order has not shipped, and
// delivered/cancelled are terminal.
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) || from == to {
		return false
	}
	if from == StatusCancelled || from == StatusDelivered {
		return false
	}
	if to == StatusCancelled {
		return from == StatusPending || from == StatusConfirmed
	}
	return statusRank[to] > statusRank[from]
}

type Order struct {
	ID                   uint        `gorm:"primaryKey" json:"order_id"`
	UserID               uint        `gorm:"not null;index" json:"user_id"`
	OrderDate            time.Time   `gorm:"not null" json:"order_date"`
	Status               string      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount          float64     `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	ShippingAddressLine1 string      `gorm:"type:varchar(200);not null" json:"shipping_address_line1"`
	ShippingAddressLine2 string      `gorm:"type:varchar(200)" json:"shipping_address_line2"`
	ShippingCity         string      `gorm:"type:varchar(100);not null" json:"shipping_city"`
	ShippingState        string      `gorm:"type:varchar(100);not null" json:"shipping_state"`
	ShippingPostalCode   string      `gorm:"type:varchar(20);not null" json:"shipping_postal_code"`
	ShippingCountry      string      `gorm:"type:varchar(100);not null" json:"shipping_country"`
	Items                []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"order_item_id"`
	OrderID   uint    `gorm:"not null;index" json:"-"`
	ProductID uint    `gorm:"not null" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderLine is a single (product, quantity) pair in a placement request.
type OrderLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type OrderFilter struct {
	Status    string
	UserID    uint
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *float64
	MaxAmount *float64
}

// PlatformStats aggregates order activity across all users.
type PlatformStats struct {
	TotalOrders    int64            `json:"total_orders"`
	TotalSales     float64          `json:"total_sales"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
}

// UserStats aggregates order activity for a single user.
type UserStats struct {
	OrderCount        int64   `json:"order_count"`
	TotalSales        float64 `json:"total_sales"`
	AverageOrderValue float64 `json:"average_order_value"`
}
