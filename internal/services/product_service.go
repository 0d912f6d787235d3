package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// PayloadInput is the price and stock block of a product payload.
type PayloadInput struct {
	RegularPrice decimal.Decimal  `json:"regularPrice"`
	SalePrice    *decimal.Decimal `json:"salePrice"`
	Stock        *int             `json:"stock"`
	Photos       []string         `json:"photos" validate:"omitempty,dive,url"`
}

type VariationInput struct {
	Name string `json:"name" validate:"required,max=100"`
	PayloadInput
}

type ExternalInput struct {
	ExternalURL string `json:"externalUrl" validate:"omitempty,url"`
	PayloadInput
}

// CreateProductInput must carry the payload matching ProductType.
type CreateProductInput struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description"`
	ProductType models.ProductType   `json:"productType" validate:"required"`
	Status      models.ProductStatus `json:"status"`
	Simple      *PayloadInput        `json:"productSimple" validate:"omitempty"`
	Variations  []VariationInput     `json:"productVariable" validate:"omitempty,dive"`
	Group       *PayloadInput        `json:"productGroup" validate:"omitempty"`
	External    *ExternalInput       `json:"productExternal" validate:"omitempty"`
}

// ProductPatch lists the product fields that may be edited. Price and stock
// fields apply to the primary payload. ClearSalePrice removes the sale price.
type ProductPatch struct {
	Name           *string               `json:"name"`
	Description    *string               `json:"description"`
	Status         *models.ProductStatus `json:"status"`
	RegularPrice   *decimal.Decimal      `json:"regularPrice"`
	SalePrice      *decimal.Decimal      `json:"salePrice"`
	ClearSalePrice bool                  `json:"clearSalePrice"`
	Stock          *int                  `json:"stock"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	store repositories.Store
}

// NewProductService creates a new ProductService.
func NewProductService(store repositories.Store) *ProductService {
	return &ProductService{store: store}
}

func (p PayloadInput) validate(path string) error {
	if !p.RegularPrice.IsPositive() {
		return apperrors.Validation("%s.regularPrice must be greater than 0", path)
	}
	if p.SalePrice != nil && (p.SalePrice.IsNegative() || p.SalePrice.GreaterThan(p.RegularPrice)) {
		return apperrors.Validation("%s.salePrice must be between 0 and regularPrice", path)
	}
	if p.Stock != nil && *p.Stock < 0 {
		return apperrors.Validation("%s.stock must not be negative", path)
	}
	return nil
}

func (p PayloadInput) priceStock() models.PriceStock {
	ps := models.PriceStock{
		RegularPrice: p.RegularPrice,
		Stock:        p.Stock,
		Photos:       p.Photos,
	}
	if p.SalePrice != nil {
		ps.SalePrice = decimal.NewNullDecimal(*p.SalePrice)
	}
	return ps
}

func (in CreateProductInput) toModel() (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validation("Product name is required")
	}
	if !in.ProductType.Valid() {
		return nil, apperrors.Validation("Invalid product type: %s", in.ProductType)
	}
	if in.Status == "" {
		in.Status = models.ProductStatusDraft
	}
	if !in.Status.Valid() {
		return nil, apperrors.Validation("Invalid product status: %s", in.Status)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ProductType: in.ProductType,
		Status:      in.Status,
		Lifecycle:   models.LifecycleActive,
	}
	switch in.ProductType {
	case models.ProductTypeSimple:
		if in.Simple == nil {
			return nil, apperrors.Validation("productSimple is required for SIMPLE products")
		}
		if err := in.Simple.validate("productSimple"); err != nil {
			return nil, err
		}
		product.Simple = &models.ProductSimple{PriceStock: in.Simple.priceStock()}
	case models.ProductTypeVariable:
		if len(in.Variations) == 0 {
			return nil, apperrors.Validation("productVariable needs at least one variation")
		}
		for i, v := range in.Variations {
			if err := v.validate(fmt.Sprintf("productVariable[%d]", i)); err != nil {
				return nil, err
			}
			product.Variations = append(product.Variations, models.ProductVariation{
				Name:       v.Name,
				Position:   i,
				PriceStock: v.priceStock(),
			})
		}
	case models.ProductTypeGroup:
		if in.Group == nil {
			return nil, apperrors.Validation("productGroup is required for GROUP products")
		}
		if err := in.Group.validate("productGroup"); err != nil {
			return nil, err
		}
		product.Group = &models.ProductGroup{PriceStock: in.Group.priceStock()}
	case models.ProductTypeExternal:
		if in.External == nil {
			return nil, apperrors.Validation("productExternal is required for EXTERNAL products")
		}
		if err := in.External.validate("productExternal"); err != nil {
			return nil, err
		}
		product.External = &models.ProductExternal{
			ExternalURL: in.External.ExternalURL,
			PriceStock:  in.External.priceStock(),
		}
	}
	return product, nil
}

// Slugify lower-cases name and joins its letter and digit runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "product"
	}
	return b.String()
}

func uniqueSlug(ctx context.Context, products repositories.ProductRepository, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for i := 2; ; i++ {
		exists, err := products.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateProduct validates the input and stores the product with a unique slug.
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	product, err := in.toModel()
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		slug, err := uniqueSlug(ctx, tx.Products(), product.Name)
		if err != nil {
			return err
		}
		product.Slug = slug
		return tx.Products().Create(ctx, product)
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperrors.Conflict("A product with slug '%s' already exists", product.Slug)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProductByID retrieves a single live product.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound("Product not found")
	}
	return product, err
}

// GetVisibleProduct is GetProductByID for catalog readers. Products that are
// not ACTIVE exist only for admins.
func (s *ProductService) GetVisibleProduct(ctx context.Context, actor Actor, id string) (*models.Product, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && product.Status != models.ProductStatusActive {
		return nil, apperrors.NotFound("Product not found")
	}
	return product, nil
}

// ListVisibleProducts is ListProducts for catalog readers. Non-admins only
// ever see ACTIVE products whatever status they ask for.
func (s *ProductService) ListVisibleProducts(ctx context.Context, actor Actor, filter repositories.ProductFilter, page repositories.Page) ([]models.Product, repositories.Pagination, error) {
	if !actor.IsAdmin() {
		filter.Status = models.ProductStatusActive
	}
	return s.ListProducts(ctx, filter, page)
}

// ListProducts returns a page of live products.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter, page repositories.Page) ([]models.Product, repositories.Pagination, error) {
	if err := page.Validate(); err != nil {
		return nil, repositories.Pagination{}, apperrors.Validation("%s", err.Error())
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, repositories.Pagination{}, apperrors.Validation("Invalid product status: %s", filter.Status)
	}
	if filter.ProductType != "" && !filter.ProductType.Valid() {
		return nil, repositories.Pagination{}, apperrors.Validation("Invalid product type: %s", filter.ProductType)
	}
	products, total, err := s.store.Products().List(ctx, filter, page)
	if err != nil {
		return nil, repositories.Pagination{}, err
	}
	return products, repositories.NewPagination(total, page), nil
}

// UpdateProduct applies patch. Renaming regenerates the slug.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.Validation("Invalid product status: %s", *patch.Status)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.Validation("Product name is required")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, apperrors.Validation("stock must not be negative")
	}

	var product *models.Product
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		product, err = tx.Products().GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Product not found")
		}
		if err != nil {
			return err
		}

		if patch.Name != nil && strings.TrimSpace(*patch.Name) != product.Name {
			product.Name = strings.TrimSpace(*patch.Name)
			if product.Slug, err = uniqueSlug(ctx, tx.Products(), product.Name); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			product.Description = *patch.Description
		}
		if patch.Status != nil {
			product.Status = *patch.Status
		}

		if patch.RegularPrice != nil || patch.SalePrice != nil || patch.ClearSalePrice || patch.Stock != nil {
			payload, ok := product.PrimaryPayload()
			if !ok {
				return apperrors.Validation("Product has no %s payload to update", product.ProductType)
			}
			if patch.RegularPrice != nil {
				payload.RegularPrice = *patch.RegularPrice
			}
			if patch.ClearSalePrice {
				payload.SalePrice = decimal.NullDecimal{}
			} else if patch.SalePrice != nil {
				payload.SalePrice = decimal.NewNullDecimal(*patch.SalePrice)
			}
			if patch.Stock != nil {
				stock := *patch.Stock
				payload.Stock = &stock
			}
			if !payload.RegularPrice.IsPositive() {
				return apperrors.Validation("regularPrice must be greater than 0")
			}
			if payload.SalePrice.Valid && (payload.SalePrice.Decimal.IsNegative() || payload.SalePrice.Decimal.GreaterThan(payload.RegularPrice)) {
				return apperrors.Validation("salePrice must be between 0 and regularPrice")
			}
		}

		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct trashes a product. Carts holding it drop the line on the
// next reconcile.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	err := s.store.Products().SoftDelete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound("Product not found")
	}
	return err
}
