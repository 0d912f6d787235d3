package models

import "time"

// User represents a user of the store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"` // bcrypt hash, never serialized
	Role      Role      `json:"role" gorm:"type:varchar(16);not null;default:CUSTOMER"`
	Lifecycle Lifecycle `json:"-" gorm:"type:varchar(16);not null;default:ACTIVE"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AllModels lists every persisted type, in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Product{}, &ProductSimple{}, &ProductVariation{}, &ProductGroup{}, &ProductExternal{},
		&Cart{}, &CartItem{},
		&Order{}, &OrderItem{},
	}
}
