package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderFilter narrows order listings. Zero fields are ignored.
type OrderFilter struct {
	UserID        string
	OrderStatus   models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaymentMethod models.PaymentMethod
	StartDate     *time.Time
	EndDate       *time.Time
	Search        string
	SortField     string
	SortDesc      bool
}

// OrderRepository defines the interface for order data access. Trashed
// orders are invisible to every read.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, order *models.Order) error
	SoftDelete(ctx context.Context, id string) error
	Stats(ctx context.Context, since time.Time) (*models.OrderStats, error)
}
