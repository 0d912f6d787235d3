// Package events carries order notifications from the order service to
// customers, either through RabbitMQ or in-process.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderCancelled     Type = "order.cancelled"
	OrderStatusChanged Type = "order.status_changed"
)

type Item struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderEvent is the message published after an order changes.
type OrderEvent struct {
	Type           Type                 `json:"type"`
	OrderID        string               `json:"orderId"`
	OrderNumber    string               `json:"orderNumber"`
	UserID         string               `json:"userId"`
	Email          string               `json:"email"`
	CustomerName   string               `json:"customerName"`
	Total          decimal.Decimal      `json:"total"`
	OrderStatus    models.OrderStatus   `json:"orderStatus"`
	PaymentStatus  models.PaymentStatus `json:"paymentStatus"`
	TrackingNumber string               `json:"trackingNumber,omitempty"`
	Items          []Item               `json:"items"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

// NewOrderEvent snapshots order for publishing. user may be nil.
func NewOrderEvent(t Type, order *models.Order, user *models.User) OrderEvent {
	ev := OrderEvent{
		Type:           t,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Total:          order.TotalAmount,
		OrderStatus:    order.OrderStatus,
		PaymentStatus:  order.PaymentStatus,
		TrackingNumber: order.TrackingNumber,
		OccurredAt:     time.Now().UTC(),
	}
	if user != nil {
		ev.Email = user.Email
		ev.CustomerName = user.Name
	}
	for _, it := range order.Items {
		ev.Items = append(ev.Items, Item{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return ev
}

// Publisher hands an event off for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Handler processes a delivered event.
type Handler func(ctx context.Context, event OrderEvent) error

// InlinePublisher delivers events on a background goroutine in the same
// process. Close waits for in-flight deliveries.
type InlinePublisher struct {
	handle Handler
	wg     sync.WaitGroup
}

func NewInlinePublisher(handle Handler) *InlinePublisher {
	return &InlinePublisher{handle: handle}
}

func (p *InlinePublisher) Publish(ctx context.Context, event OrderEvent) error {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.handle(ctx, event); err != nil {
			log.Printf("Warning: failed to handle %s event for order %s: %v", event.Type, event.OrderID, err)
		}
	}()
	return nil
}

func (p *InlinePublisher) Close() error {
	p.wg.Wait()
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
