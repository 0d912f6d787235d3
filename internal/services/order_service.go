package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID string
	Role   models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// PlaceOrderInput carries checkout details. BillingAddress defaults to the
// shipping address and PaymentMethod to cash on delivery.
type PlaceOrderInput struct {
	ShippingAddress *models.Address      `json:"shippingAddress" validate:"required"`
	BillingAddress  *models.Address      `json:"billingAddress" validate:"omitempty"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes" validate:"max=1000"`
}

// UnavailableItem explains why a cart line blocks checkout.
type UnavailableItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// OrderPatch lists the order fields an admin may set directly. Nil fields
// are left unchanged.
type OrderPatch struct {
	OrderStatus    *models.OrderStatus   `json:"orderStatus"`
	PaymentStatus  *models.PaymentStatus `json:"paymentStatus"`
	TrackingNumber *string               `json:"trackingNumber"`
}

// Validate checks enum membership only; any status may follow any other.
func (p OrderPatch) Validate() error {
	if p.OrderStatus == nil && p.PaymentStatus == nil && p.TrackingNumber == nil {
		return apperrors.Validation("Nothing to update")
	}
	if p.OrderStatus != nil && !p.OrderStatus.Valid() {
		return apperrors.Validation("Invalid order status: %s", *p.OrderStatus)
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return apperrors.Validation("Invalid payment status: %s", *p.PaymentStatus)
	}
	if p.TrackingNumber != nil && strings.TrimSpace(*p.TrackingNumber) == "" {
		return apperrors.Validation("Tracking number is required")
	}
	return nil
}

// OrderService handles business logic related to orders.
type OrderService struct {
	store     repositories.Store
	publisher events.Publisher
	counter   cache.CartCounter
	catalog   func(repositories.Store) CatalogReader
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher and counter may be nil.
func NewOrderService(store repositories.Store, publisher events.Publisher, counter cache.CartCounter) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if counter == nil {
		counter = cache.NopCartCounter{}
	}
	return &OrderService{
		store:     store,
		publisher: publisher,
		counter:   counter,
		catalog:   storeCatalog,
		now:       time.Now,
	}
}

// WithCatalog replaces how offers are read.
func (s *OrderService) WithCatalog(fn func(repositories.Store) CatalogReader) *OrderService {
	s.catalog = fn
	return s
}

func (s *OrderService) newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", s.now().UnixNano(), strings.ToUpper(uuid.NewString()[:8]))
}

// PlaceOrder turns the user's cart into an order. Every line is priced from
// the live catalog. If any line is unavailable nothing is written and the
// error lists every such line. Order insert, stock decrement and cart clear
// commit together; a concurrent sale that leaves too little stock rolls the
// whole order back.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (*models.Order, error) {
	if in.ShippingAddress == nil {
		return nil, apperrors.Validation("Shipping address is required")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentMethodCashOnDelivery
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperrors.Validation("Invalid payment method: %s", in.PaymentMethod)
	}
	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = in.BillingAddress
	}

	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		cart, err := tx.Carts().FindActiveByUser(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.BusinessRule(apperrors.CodeEmptyCart, "Your cart is empty")
		}
		if err != nil {
			return err
		}
		lines, err := tx.Carts().ListLiveItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperrors.BusinessRule(apperrors.CodeEmptyCart, "Your cart is empty")
		}

		catalog := s.catalog(tx)
		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		unavailable := []UnavailableItem{}
		for _, line := range lines {
			offer, err := catalog.Offer(ctx, line.ProductID)
			if err != nil {
				return err
			}
			switch {
			case !offer.Available:
				unavailable = append(unavailable, UnavailableItem{
					ProductID: line.ProductID, Name: offer.Name, Reason: lineUnavailableReason(offer),
				})
				continue
			case !offer.CanSupply(line.Quantity):
				reason := ReasonOutOfStock
				if *offer.Stock > 0 {
					reason = fmt.Sprintf("Only %d items available in stock", *offer.Stock)
				}
				unavailable = append(unavailable, UnavailableItem{
					ProductID: line.ProductID, Name: offer.Name, Reason: reason,
				})
				continue
			}

			lineTotal := offer.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, models.OrderItem{
				ProductID:    line.ProductID,
				ProductName:  offer.Name,
				ProductImage: offer.Image,
				UnitPrice:    offer.UnitPrice,
				Quantity:     line.Quantity,
				LineTotal:    lineTotal,
			})
		}
		if len(unavailable) > 0 {
			return apperrors.BusinessRule(apperrors.CodeUnavailableItems, "Some items in your cart are unavailable").
				WithDetail("unavailableItems", unavailable)
		}

		order = &models.Order{
			OrderNumber:     s.newOrderNumber(),
			UserID:          userID,
			TotalAmount:     total,
			ShippingAddress: *in.ShippingAddress,
			BillingAddress:  *billing,
			PaymentMethod:   in.PaymentMethod,
			OrderStatus:     models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			Notes:           in.Notes,
			Lifecycle:       models.LifecycleActive,
			Items:           items,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		for _, item := range items {
			err := tx.Products().AdjustStock(ctx, item.ProductID, -item.Quantity)
			if errors.Is(err, repositories.ErrStockConflict) {
				offer, readErr := catalog.Offer(ctx, item.ProductID)
				if readErr != nil {
					return readErr
				}
				available := 0
				if offer.Stock != nil {
					available = *offer.Stock
				}
				return apperrors.InsufficientStock(available).WithDetail("productId", item.ProductID)
			}
			if err != nil {
				return err
			}
		}

		_, err = tx.Carts().TrashLiveItems(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	order.ItemCount = int64(len(order.Items))
	if err := s.counter.Invalidate(ctx, userID); err != nil {
		log.Printf("Warning: failed to invalidate cart count for user %s: %v", userID, err)
	}
	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// publish is best-effort; failures never undo the order change.
func (s *OrderService) publish(ctx context.Context, t events.Type, order *models.Order) {
	user, err := s.store.Users().GetByID(ctx, order.UserID)
	if err != nil {
		log.Printf("Warning: no recipient for %s event of order %s: %v", t, order.ID, err)
	}
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order, user)); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", t, order.ID, err)
	}
}

// List returns a page of orders for admins.
func (s *OrderService) List(ctx context.Context, filter repositories.OrderFilter, page repositories.Page) ([]models.Order, repositories.Pagination, error) {
	if err := page.Validate(); err != nil {
		return nil, repositories.Pagination{}, apperrors.Validation("%s", err.Error())
	}
	if filter.OrderStatus != "" && !filter.OrderStatus.Valid() {
		return nil, repositories.Pagination{}, apperrors.Validation("Invalid order status: %s", filter.OrderStatus)
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, repositories.Pagination{}, apperrors.Validation("Invalid payment status: %s", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return nil, repositories.Pagination{}, apperrors.Validation("Invalid payment method: %s", filter.PaymentMethod)
	}

	orders, total, err := s.store.Orders().List(ctx, filter, page)
	if err != nil {
		return nil, repositories.Pagination{}, err
	}
	return orders, repositories.NewPagination(total, page), nil
}

// ListMine returns a page of the user's own orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID string, status models.OrderStatus, page repositories.Page) ([]models.Order, repositories.Pagination, error) {
	return s.List(ctx, repositories.OrderFilter{
		UserID:      userID,
		OrderStatus: status,
		SortField:   "createdAt",
		SortDesc:    true,
	}, page)
}

// Get returns an order. Customers only see their own orders.
func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, nil
}

// UpdateOrder applies an admin patch.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*models.Order, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		order, err = tx.Orders().GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Order not found")
		}
		if err != nil {
			return err
		}
		if patch.OrderStatus != nil {
			order.OrderStatus = *patch.OrderStatus
		}
		if patch.PaymentStatus != nil {
			order.PaymentStatus = *patch.PaymentStatus
		}
		if patch.TrackingNumber != nil {
			order.TrackingNumber = strings.TrimSpace(*patch.TrackingNumber)
		}
		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if patch.OrderStatus != nil || patch.TrackingNumber != nil {
		s.publish(ctx, events.OrderStatusChanged, order)
	}
	return order, nil
}

// Cancel cancels an order and puts its quantities back on stock. Customers
// may cancel their own PENDING or PROCESSING orders; admins any live order.
// A cancelled order cannot be cancelled again.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		order, err = tx.Orders().GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Order not found or cannot be cancelled")
		}
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && order.UserID != actor.UserID {
			return apperrors.NotFound("Order not found or cannot be cancelled")
		}
		if order.OrderStatus == models.OrderStatusCancelled {
			return apperrors.BusinessRule(apperrors.CodeOrderNotCancellable, "Order is already cancelled")
		}
		if !actor.IsAdmin() && !order.OrderStatus.CustomerCancellable() {
			return apperrors.NotFound("Order not found or cannot be cancelled")
		}

		order.OrderStatus = models.OrderStatusCancelled
		if order.PaymentStatus == models.PaymentStatusCompleted {
			order.PaymentStatus = models.PaymentStatusRefunded
		} else {
			order.PaymentStatus = models.PaymentStatusCancelled
		}
		if err := tx.Orders().UpdateStatus(ctx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			err := tx.Products().AdjustStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, repositories.ErrNotFound) {
				log.Printf("Skipping stock restore for missing product %s of order %s", item.ProductID, order.ID)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderCancelled, order)
	return order, nil
}

// Delete trashes an order. Stock is not restored.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	err := s.store.Orders().SoftDelete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound("Order not found")
	}
	return err
}

// PeriodStart returns the start of the current day, week (Sunday), month or
// year. Unknown periods fall back to month.
func PeriodStart(now time.Time, period string) (time.Time, string) {
	y, m, d := now.Date()
	loc := now.Location()
	switch period {
	case "day":
		return time.Date(y, m, d, 0, 0, 0, 0, loc), period
	case "week":
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc), period
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), period
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), "month"
	}
}

// Stats aggregates live orders for the admin dashboard.
func (s *OrderService) Stats(ctx context.Context, period string) (*models.OrderStats, error) {
	since, period := PeriodStart(s.now(), period)
	stats, err := s.store.Orders().Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	stats.Period = period
	return stats, nil
}
