package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// FindActiveByUser returns the user's ACTIVE cart without its items.
func (r *GORMCartRepository) FindActiveByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND lifecycle = ?", userID, models.LifecycleActive).
		Order("created_at ASC").
		First(&cart).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get cart for user %s", userID)
	}
	return &cart, nil
}

// Create inserts cart. It returns ErrDuplicate when the user already owns an
// ACTIVE cart.
func (r *GORMCartRepository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	if cart.Lifecycle == "" {
		cart.Lifecycle = models.LifecycleActive
	}
	res := r.db.WithContext(ctx).Omit("Items").Clauses(clause.OnConflict{DoNothing: true}).Create(cart)
	if res.Error != nil {
		return fmt.Errorf("failed to create cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: active cart for user %s", ErrDuplicate, cart.UserID)
	}
	return nil
}

// ListLiveItems returns the cart's ACTIVE lines, oldest first.
func (r *GORMCartRepository) ListLiveItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND lifecycle = ?", cartID, models.LifecycleActive).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items of cart %s: %w", cartID, err)
	}
	return items, nil
}

func (r *GORMCartRepository) FindLiveItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ? AND lifecycle = ?", itemID, cartID, models.LifecycleActive).
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get cart item %s", itemID)
	}
	return &item, nil
}

func (r *GORMCartRepository) FindLiveItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND lifecycle = ?", cartID, productID, models.LifecycleActive).
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get cart item for product %s", productID)
	}
	return &item, nil
}

func (r *GORMCartRepository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Lifecycle == "" {
		item.Lifecycle = models.LifecycleActive
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateItem persists quantity and price of a live line.
func (r *GORMCartRepository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	res := r.db.WithContext(ctx).Model(item).
		Where("lifecycle = ?", models.LifecycleActive).
		Select("quantity", "price", "updated_at").
		Updates(item)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GORMCartRepository) TrashItem(ctx context.Context, itemID string) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND lifecycle = ?", itemID, models.LifecycleActive).
		Update("lifecycle", models.LifecycleTrashed)
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TrashLiveItems trashes every live line of the cart and reports how many
// rows changed.
func (r *GORMCartRepository) TrashLiveItems(ctx context.Context, cartID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND lifecycle = ?", cartID, models.LifecycleActive).
		Update("lifecycle", models.LifecycleTrashed)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear cart %s: %w", cartID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GORMCartRepository) CountLiveItems(ctx context.Context, cartID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND lifecycle = ?", cartID, models.LifecycleActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count items of cart %s: %w", cartID, err)
	}
	return count, nil
}
