package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"user_id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone"`
	Password     string    `gorm:"type:varchar(100);not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	AddressLine1 string    `gorm:"type:varchar(200);not null" json:"address_line1"`
	AddressLine2 string    `gorm:"type:varchar(200)" json:"address_line2"`
	City         string    `gorm:"type:varchar(100);not null" json:"city"`
	State        string    `gorm:"type:varchar(100);not null" json:"state"`
	PostalCode   string    `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country      string    `gorm:"type:varchar(100);not null" json:"country"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserFilter struct {
	Role   string
	Search string
}
