package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is stored as JSON on the order row.
type Address struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode" validate:"omitempty,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// OrderItem is an immutable snapshot of a purchased line. It references the
// product by id only; name, image and price are frozen at order time.
type OrderItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string          `json:"orderId" gorm:"type:varchar(36);index"`
	ProductID    string          `json:"productId" gorm:"type:varchar(36);index"`
	ProductName  string          `json:"productName" gorm:"type:varchar(200)"`
	ProductImage string          `json:"productImage" gorm:"type:varchar(500)"`
	UnitPrice    decimal.Decimal `json:"productPrice" gorm:"type:decimal(12,2);not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	LineTotal    decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string          `json:"orderNumber" gorm:"type:varchar(40);uniqueIndex"`
	UserID          string          `json:"userId" gorm:"type:varchar(36);index"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	ShippingAddress Address         `json:"shippingAddress" gorm:"serializer:json"`
	BillingAddress  Address         `json:"billingAddress" gorm:"serializer:json"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(32);not null"`
	OrderStatus     OrderStatus     `json:"orderStatus" gorm:"type:varchar(16);not null;index"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(16);not null;index"`
	TrackingNumber  string          `json:"trackingNumber" gorm:"type:varchar(100)"`
	Notes           string          `json:"notes" gorm:"type:text"`
	Lifecycle       Lifecycle       `json:"-" gorm:"type:varchar(16);not null;default:ACTIVE;index"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	User            *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ItemCount       int64           `json:"itemCount,omitempty" gorm:"-"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderStats aggregates non-trashed orders.
type OrderStats struct {
	TotalOrders         int64                   `json:"totalOrders"`
	OrdersInPeriod      int64                   `json:"ordersInPeriod"`
	TotalRevenue        decimal.Decimal         `json:"totalRevenue"`
	RevenueInPeriod     decimal.Decimal         `json:"revenueInPeriod"`
	OrderStatusCounts   map[OrderStatus]int64   `json:"orderStatusCounts"`
	PaymentStatusCounts map[PaymentStatus]int64 `json:"paymentStatusCounts"`
	Period              string                  `json:"period"`
}
