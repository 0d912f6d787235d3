package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows product listings. Zero fields are ignored.
type ProductFilter struct {
	Status      models.ProductStatus
	ProductType models.ProductType
	Search      string
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter, page Page) ([]models.Product, int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	// AdjustStock adds delta to the tracked stock of the product's primary
	// payload. Negative deltas only apply while stock stays non-negative,
	// otherwise ErrStockConflict is returned. Untracked stock is a no-op.
	AdjustStock(ctx context.Context, productID string, delta int) error
}
