package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// Unavailability reasons reported to customers.
const (
	ReasonNotAvailable   = "Product not found or not available"
	ReasonNoLongerListed = "Product is no longer available"
	ReasonUnsupported    = "Product type not supported"
	ReasonOutOfStock     = "Product is out of stock"
)

// Offer is the sellable view of a product: its current unit price and
// tracked stock taken from the type payload. Stock is nil when untracked.
type Offer struct {
	ProductID   string               `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	ProductType models.ProductType   `json:"productType"`
	Status      models.ProductStatus `json:"status"`
	Available   bool                 `json:"available"`
	Reason      string               `json:"reason,omitempty"`
	UnitPrice   decimal.Decimal      `json:"price"`
	Stock       *int                 `json:"stock"`
	Image       string               `json:"image"`
}

// CanSupply reports whether qty units can be sold.
func (o Offer) CanSupply(qty int) bool {
	return o.Stock == nil || *o.Stock >= qty
}

// CatalogReader resolves products to offers.
type CatalogReader interface {
	Offer(ctx context.Context, productID string) (Offer, error)
}

type catalogReader struct {
	products repositories.ProductRepository
}

func NewCatalogReader(products repositories.ProductRepository) CatalogReader {
	return &catalogReader{products: products}
}

// Offer never fails for a missing, trashed or inactive product; it returns
// an unavailable offer instead.
func (r *catalogReader) Offer(ctx context.Context, productID string) (Offer, error) {
	product, err := r.products.GetByID(ctx, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Offer{ProductID: productID, Reason: ReasonNotAvailable}, nil
	}
	if err != nil {
		return Offer{}, fmt.Errorf("failed to read product %s: %w", productID, err)
	}
	return offerFor(product), nil
}

func offerFor(p *models.Product) Offer {
	o := Offer{
		ProductID:   p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		ProductType: p.ProductType,
		Status:      p.Status,
	}
	if p.Status != models.ProductStatusActive {
		o.Reason = ReasonNotAvailable
		return o
	}
	payload, ok := p.PrimaryPayload()
	if !ok {
		o.Reason = ReasonUnsupported
		return o
	}
	o.Available = true
	o.UnitPrice = payload.EffectivePrice()
	if payload.Stock != nil {
		stock := *payload.Stock
		o.Stock = &stock
	}
	o.Image = payload.FirstPhoto()
	return o
}
