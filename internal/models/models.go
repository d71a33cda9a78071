package models

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

const (
	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderShipped = "shipped"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"              json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	IsVerified   bool      `gorm:"default:false"                     json:"is_verified"`
	Role         string    `gorm:"not null;default:customer"         json:"role"`
	CreatedAt    time.Time `                                         json:"created_at"`

	Addresses []Address `json:"-"`
	Orders    []Order   `json:"-"`
}

type OTP struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"index;not null"           json:"email"`
	Code      string    `gorm:"not null"                 json:"-"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"uniqueIndex;not null"     json:"name"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Description string  `                                json:"description"`
	ImagePath   string  `                                json:"image_path,omitempty"`
}

type Address struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  uint   `gorm:"index;not null"           json:"user_id"`
	Label   string `                                json:"label"`
	Address string `                                json:"address"`
	Phone   string `                                json:"phone"`
}

type Order struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Total     float64   `gorm:"default:0"                json:"total"`
	AddressID *uint     `                                json:"address_id,omitempty"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt time.Time `                                json:"created_at"`

	Items []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Qty       int     `gorm:"default:1"                json:"qty"`
	Price     float64 `                                json:"price"`
}

// All lists every table created at startup.
func All() []any {
	return []any{&User{}, &OTP{}, &Product{}, &Address{}, &Order{}, &OrderItem{}}
}
