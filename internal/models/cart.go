package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds a user's pending line items. A user has at most one ACTIVE cart,
// enforced by the idx_carts_active_user partial index created in Migrate.
type Cart struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"userId" gorm:"type:varchar(36);index"`
	Lifecycle Lifecycle  `json:"-" gorm:"type:varchar(16);not null;default:ACTIVE;index"`
	Items     []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem is one product line. Price is the unit price captured when the
// line was last added or reconciled.
type CartItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID    string          `json:"cartId" gorm:"type:varchar(36);index"`
	ProductID string          `json:"productId" gorm:"type:varchar(36);index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Lifecycle Lifecycle       `json:"-" gorm:"type:varchar(16);not null;default:ACTIVE;index"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
