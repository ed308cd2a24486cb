package models

import (
	"time"
)

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string    `gorm:"not null"                  json:"name"`
	Description string    `gorm:"not null"                  json:"description"`
	ImageURL    string    `gorm:"not null"                  json:"image_url"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cart is the aggregate root for line items. UserID is nil for an anonymous
// cart, which is identified by its Token instead; exactly one of the two is
// set. Line-item mutations are routed through the cart row so LastUpdated
// always reflects the latest change.
type Cart struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *uint      `gorm:"uniqueIndex"              json:"user_id,omitempty"`
	Token       *string    `gorm:"uniqueIndex"              json:"-"`
	LastUpdated time.Time  `gorm:"autoUpdateTime"           json:"last_updated"`
	Items       []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"               json:"id"`
	CartID    uint    `gorm:"uniqueIndex:idx_cart_product;not null"  json:"cart_id"`
	ProductID uint    `gorm:"uniqueIndex:idx_cart_product;not null"  json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"             json:"quantity"`
	Product   Product `gorm:"foreignKey:ProductID"                   json:"product"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}
