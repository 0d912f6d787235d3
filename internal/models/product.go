package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceStock is the price and inventory block shared by every product payload.
// A nil Stock means inventory is not tracked.
type PriceStock struct {
	RegularPrice decimal.Decimal     `json:"regularPrice" gorm:"type:decimal(12,2);not null"`
	SalePrice    decimal.NullDecimal `json:"salePrice" gorm:"type:decimal(12,2)"`
	Stock        *int                `json:"stock"`
	Photos       []string            `json:"photos" gorm:"serializer:json"`
}

// EffectivePrice is the sale price when set, the regular price otherwise.
func (p PriceStock) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.RegularPrice
}

// FirstPhoto returns the first photo URL or an empty string.
func (p PriceStock) FirstPhoto() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0]
}

type ProductSimple struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID  string `json:"-" gorm:"type:varchar(36);uniqueIndex"`
	PriceStock `gorm:"embedded"`
}

type ProductVariation struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID  string `json:"-" gorm:"type:varchar(36);index"`
	Name       string `json:"name" gorm:"type:varchar(100)"`
	Position   int    `json:"position"`
	PriceStock `gorm:"embedded"`
}

type ProductGroup struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID  string `json:"-" gorm:"type:varchar(36);uniqueIndex"`
	PriceStock `gorm:"embedded"`
}

type ProductExternal struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID   string `json:"-" gorm:"type:varchar(36);uniqueIndex"`
	ExternalURL string `json:"externalUrl" gorm:"type:varchar(500)"`
	PriceStock  `gorm:"embedded"`
}

// Product represents a catalog entry. Exactly one of Simple, Variations,
// Group or External is populated, matching ProductType.
type Product struct {
	ID          string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string             `json:"name" gorm:"type:varchar(200);not null"`
	Slug        string             `json:"slug" gorm:"type:varchar(220);uniqueIndex"`
	Description string             `json:"description" gorm:"type:text"`
	ProductType ProductType        `json:"productType" gorm:"type:varchar(16);not null"`
	Status      ProductStatus      `json:"status" gorm:"type:varchar(16);not null;default:ACTIVE;index"`
	Lifecycle   Lifecycle          `json:"-" gorm:"type:varchar(16);not null;default:ACTIVE;index"`
	Simple      *ProductSimple     `json:"productSimple,omitempty" gorm:"foreignKey:ProductID"`
	Variations  []ProductVariation `json:"productVariable,omitempty" gorm:"foreignKey:ProductID"`
	Group       *ProductGroup      `json:"productGroup,omitempty" gorm:"foreignKey:ProductID"`
	External    *ProductExternal   `json:"productExternal,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// PrimaryPayload returns the payload price and stock are read from. For
// VARIABLE products this is the first variation; no variation selection is
// carried through the cart or order line. The second result is false when
// the payload matching ProductType is missing.
func (p *Product) PrimaryPayload() (*PriceStock, bool) {
	switch p.ProductType {
	case ProductTypeSimple:
		if p.Simple != nil {
			return &p.Simple.PriceStock, true
		}
	case ProductTypeVariable:
		if len(p.Variations) > 0 {
			return &p.Variations[0].PriceStock, true
		}
	case ProductTypeGroup:
		if p.Group != nil {
			return &p.Group.PriceStock, true
		}
	case ProductTypeExternal:
		if p.External != nil {
			return &p.External.PriceStock, true
		}
	}
	return nil, false
}
