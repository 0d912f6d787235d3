package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines the interface for cart data access. Only ACTIVE
// carts and line items are ever returned.
type CartRepository interface {
	FindActiveByUser(ctx context.Context, userID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	ListLiveItems(ctx context.Context, cartID string) ([]models.CartItem, error)
	FindLiveItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error)
	FindLiveItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	TrashItem(ctx context.Context, itemID string) error
	TrashLiveItems(ctx context.Context, cartID string) (int64, error)
	CountLiveItems(ctx context.Context, cartID string) (int64, error)
}
