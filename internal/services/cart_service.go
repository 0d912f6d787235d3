package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

const reasonAdjustedToStock = "Adjusted to available stock"

// CartProduct is the product summary shown next to a cart line.
type CartProduct struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Slug         string               `json:"slug"`
	ProductType  models.ProductType   `json:"productType"`
	Status       models.ProductStatus `json:"status"`
	ProductPhoto string               `json:"productPhoto"`
}

type CartLine struct {
	models.CartItem
	Product      CartProduct     `json:"product"`
	ItemTotal    decimal.Decimal `json:"itemTotal"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	PriceChanged bool            `json:"priceChanged"`
}

// CartView is a cart with its live lines and totals. ItemCount is the
// number of lines, not the summed quantity.
type CartView struct {
	ID        string          `json:"id"`
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LineChange is one entry of the reconcile ledger.
type LineChange struct {
	ID          string           `json:"id"`
	ProductName string           `json:"productName"`
	Reason      string           `json:"reason,omitempty"`
	OldQuantity int              `json:"oldQuantity,omitempty"`
	NewQuantity int              `json:"newQuantity,omitempty"`
	OldPrice    *decimal.Decimal `json:"oldPrice,omitempty"`
	NewPrice    *decimal.Decimal `json:"newPrice,omitempty"`
}

type CartChanges struct {
	Updated      []LineChange `json:"updated"`
	Removed      []LineChange `json:"removed"`
	PriceChanged []LineChange `json:"priceChanged"`
}

// Empty reports whether reconciling changed nothing.
func (c CartChanges) Empty() bool {
	return len(c.Updated) == 0 && len(c.Removed) == 0 && len(c.PriceChanged) == 0
}

type SyncResult struct {
	*CartView
	Changes CartChanges `json:"changes"`
}

// CartService handles business logic related to carts.
type CartService struct {
	store   repositories.Store
	catalog func(repositories.Store) CatalogReader
	counter cache.CartCounter
}

// NewCartService creates a new CartService. counter may be nil.
func NewCartService(store repositories.Store, counter cache.CartCounter) *CartService {
	if counter == nil {
		counter = cache.NopCartCounter{}
	}
	return &CartService{
		store:   store,
		catalog: storeCatalog,
		counter: counter,
	}
}

func storeCatalog(s repositories.Store) CatalogReader {
	return NewCatalogReader(s.Products())
}

// WithCatalog replaces how offers are read.
func (s *CartService) WithCatalog(fn func(repositories.Store) CatalogReader) *CartService {
	s.catalog = fn
	return s
}

func getOrCreateCart(ctx context.Context, store repositories.Store, userID string) (*models.Cart, error) {
	cart, err := store.Carts().FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	cart = &models.Cart{UserID: userID, Lifecycle: models.LifecycleActive}
	err = store.Carts().Create(ctx, cart)
	if errors.Is(err, repositories.ErrDuplicate) {
		// A concurrent request created it first.
		return store.Carts().FindActiveByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreate returns the user's active cart, creating an empty one if absent.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		cart, err = getOrCreateCart(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return cart, nil
}

// View returns the formatted cart with current prices.
func (s *CartService) View(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, s.store, cart)
}

func (s *CartService) buildView(ctx context.Context, store repositories.Store, cart *models.Cart) (*CartView, error) {
	items, err := store.Carts().ListLiveItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	catalog := s.catalog(store)

	view := &CartView{
		ID:        cart.ID,
		Items:     make([]CartLine, 0, len(items)),
		ItemCount: len(items),
		Subtotal:  decimal.Zero,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range items {
		offer, err := catalog.Offer(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		line := CartLine{
			CartItem: item,
			Product: CartProduct{
				ID:           item.ProductID,
				Name:         offer.Name,
				Slug:         offer.Slug,
				ProductType:  offer.ProductType,
				Status:       offer.Status,
				ProductPhoto: offer.Image,
			},
			ItemTotal:    item.LineTotal(),
			CurrentPrice: item.Price,
		}
		if offer.Available {
			line.CurrentPrice = offer.UnitPrice
			line.PriceChanged = !offer.UnitPrice.Equal(item.Price)
		}
		view.Subtotal = view.Subtotal.Add(line.ItemTotal)
		view.Items = append(view.Items, line)
	}
	return view, nil
}

// AddItem puts quantity units of a product in the cart. An existing line
// for the product is incremented and repriced at the current price. The
// resulting line quantity must fit the tracked stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	if productID == "" {
		return nil, apperrors.Validation("Product ID is required")
	}
	if quantity < 1 {
		return nil, apperrors.Validation("Quantity must be at least 1")
	}

	var item *models.CartItem
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		offer, err := s.catalog(tx).Offer(ctx, productID)
		if err != nil {
			return err
		}
		if !offer.Available {
			return apperrors.ProductUnavailable(offer.Reason)
		}

		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		existing, err := tx.Carts().FindLiveItemByProduct(ctx, cart.ID, productID)
		switch {
		case err == nil:
			if !offer.CanSupply(existing.Quantity + quantity) {
				return apperrors.InsufficientStock(*offer.Stock)
			}
			existing.Quantity += quantity
			existing.Price = offer.UnitPrice
			if err := tx.Carts().UpdateItem(ctx, existing); err != nil {
				return err
			}
			item = existing
			return nil
		case errors.Is(err, repositories.ErrNotFound):
			if !offer.CanSupply(quantity) {
				return apperrors.InsufficientStock(*offer.Stock)
			}
			item = &models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				Price:     offer.UnitPrice,
				Lifecycle: models.LifecycleActive,
			}
			return tx.Carts().CreateItem(ctx, item)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return item, nil
}

// UpdateItem sets a line's quantity after re-validating availability and
// stock against the new quantity. The stored price is kept.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.Validation("Quantity must be at least 1")
	}

	var item *models.CartItem
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		item, err = findOwnedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		offer, err := s.catalog(tx).Offer(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if !offer.Available {
			return apperrors.ProductUnavailable(lineUnavailableReason(offer))
		}
		if !offer.CanSupply(quantity) {
			return apperrors.InsufficientStock(*offer.Stock)
		}

		item.Quantity = quantity
		return tx.Carts().UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem trashes one line.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		item, err := findOwnedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		return tx.Carts().TrashItem(ctx, item.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Clear trashes every live line. It reports false when the cart was
// already empty, which is not an error.
func (s *CartService) Clear(ctx context.Context, userID string) (bool, error) {
	var cleared int64
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		cart, err := tx.Carts().FindActiveByUser(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cleared, err = tx.Carts().TrashLiveItems(ctx, cart.ID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	if cleared > 0 {
		s.invalidate(ctx, userID)
	}
	return cleared > 0, nil
}

// Reconcile heals drift between the cart and the catalog. Lines whose
// product is gone, inactive or unsupported are removed; stale prices are
// refreshed; quantities above tracked stock are clamped, or the line removed
// when stock is zero. Price refresh and stock clamp both apply to the same
// line in one pass, so a second call against an unchanged catalog records
// nothing.
func (s *CartService) Reconcile(ctx context.Context, userID string) (*SyncResult, error) {
	var result *SyncResult
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		// A retried attempt starts a fresh ledger.
		changes := CartChanges{
			Updated:      []LineChange{},
			Removed:      []LineChange{},
			PriceChanged: []LineChange{},
		}

		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		items, err := tx.Carts().ListLiveItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		catalog := s.catalog(tx)

		for i := range items {
			item := &items[i]
			offer, err := catalog.Offer(ctx, item.ProductID)
			if err != nil {
				return err
			}

			if !offer.Available {
				if err := tx.Carts().TrashItem(ctx, item.ID); err != nil {
					return err
				}
				changes.Removed = append(changes.Removed, LineChange{
					ID: item.ID, ProductName: offer.Name, Reason: lineUnavailableReason(offer),
				})
				continue
			}

			changed := false
			if !offer.UnitPrice.Equal(item.Price) {
				oldPrice, newPrice := item.Price, offer.UnitPrice
				changes.PriceChanged = append(changes.PriceChanged, LineChange{
					ID: item.ID, ProductName: offer.Name, OldPrice: &oldPrice, NewPrice: &newPrice,
				})
				item.Price = offer.UnitPrice
				changed = true
			}

			if !offer.CanSupply(item.Quantity) {
				if *offer.Stock == 0 {
					if err := tx.Carts().TrashItem(ctx, item.ID); err != nil {
						return err
					}
					changes.Removed = append(changes.Removed, LineChange{
						ID: item.ID, ProductName: offer.Name, Reason: ReasonOutOfStock,
					})
					continue
				}
				changes.Updated = append(changes.Updated, LineChange{
					ID:          item.ID,
					ProductName: offer.Name,
					OldQuantity: item.Quantity,
					NewQuantity: *offer.Stock,
					Reason:      reasonAdjustedToStock,
				})
				item.Quantity = *offer.Stock
				changed = true
			}

			if changed {
				if err := tx.Carts().UpdateItem(ctx, item); err != nil {
					return err
				}
			}
		}

		view, err := s.buildView(ctx, tx, cart)
		if err != nil {
			return err
		}
		result = &SyncResult{CartView: view, Changes: changes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Changes.Removed) > 0 {
		s.invalidate(ctx, userID)
	}
	return result, nil
}

// Count returns the number of live lines, served from the cache when
// possible. A miss is refilled only if no mutation invalidated the cache
// while the count was read.
func (s *CartService) Count(ctx context.Context, userID string) (int64, error) {
	if n, ok, err := s.counter.Get(ctx, userID); err != nil {
		log.Printf("Warning: cart count cache read failed for user %s: %v", userID, err)
	} else if ok {
		return n, nil
	}

	generation, genErr := s.counter.Generation(ctx, userID)
	if genErr != nil {
		log.Printf("Warning: cart count cache read failed for user %s: %v", userID, genErr)
	}

	cart, err := s.store.Carts().FindActiveByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	n, err := s.store.Carts().CountLiveItems(ctx, cart.ID)
	if err != nil {
		return 0, err
	}
	if genErr == nil {
		if err := s.counter.Set(ctx, userID, generation, n); err != nil {
			log.Printf("Warning: cart count cache write failed for user %s: %v", userID, err)
		}
	}
	return n, nil
}

func (s *CartService) invalidate(ctx context.Context, userID string) {
	if err := s.counter.Invalidate(ctx, userID); err != nil {
		log.Printf("Warning: failed to invalidate cart count for user %s: %v", userID, err)
	}
}

func findOwnedItem(ctx context.Context, store repositories.Store, userID, itemID string) (*models.CartItem, error) {
	cart, err := store.Carts().FindActiveByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound("Cart not found")
	}
	if err != nil {
		return nil, err
	}
	item, err := store.Carts().FindLiveItem(ctx, cart.ID, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound("Cart item not found")
	}
	return item, err
}

// lineUnavailableReason words an unavailable offer for a line already in
// the cart.
func lineUnavailableReason(o Offer) string {
	if o.Reason == ReasonUnsupported {
		return ReasonUnsupported
	}
	return ReasonNoLongerListed
}
