package services_test

import (
	"context"
	"testing"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Blue Desk Lamp":     "blue-desk-lamp",
		"  Crème  Brûlée!! ": "crème-brûlée",
		"A/B testing kit 2":  "a-b-testing-kit-2",
		"***":                "product",
	}
	for in, want := range tests {
		assert.Equal(t, want, services.Slugify(in), in)
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	store := setupStore(t)
	service := services.NewProductService(store)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, services.CreateProductInput{
		Name:        "Desk Lamp",
		ProductType: models.ProductTypeSimple,
		Simple:      &services.PayloadInput{RegularPrice: decimal.NewFromInt(40), Stock: intPtr(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp", product.Slug)
	assert.Equal(t, models.ProductStatusDraft, product.Status)

	second, err := service.CreateProduct(ctx, services.CreateProductInput{
		Name:        "Desk lamp",
		ProductType: models.ProductTypeSimple,
		Status:      models.ProductStatusActive,
		Simple:      &services.PayloadInput{RegularPrice: decimal.NewFromInt(45)},
	})
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp-2", second.Slug)

	got, err := service.GetProductByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Simple)
	assert.True(t, got.Simple.RegularPrice.Equal(decimal.NewFromInt(45)))
	assert.Nil(t, got.Simple.Stock)
}

func TestProductService_CreateVariable(t *testing.T) {
	store := setupStore(t)
	service := services.NewProductService(store)
	ctx := context.Background()
	sale := decimal.NewFromInt(8)

	product, err := service.CreateProduct(ctx, services.CreateProductInput{
		Name:        "T-Shirt",
		ProductType: models.ProductTypeVariable,
		Status:      models.ProductStatusActive,
		Variations: []services.VariationInput{
			{Name: "S", PayloadInput: services.PayloadInput{RegularPrice: decimal.NewFromInt(10), SalePrice: &sale, Stock: intPtr(2)}},
			{Name: "L", PayloadInput: services.PayloadInput{RegularPrice: decimal.NewFromInt(12), Stock: intPtr(9)}},
		},
	})
	require.NoError(t, err)

	offer, err := services.NewCatalogReader(store.Products()).Offer(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, offer.Available)
	assert.True(t, offer.UnitPrice.Equal(sale))
	require.NotNil(t, offer.Stock)
	assert.Equal(t, 2, *offer.Stock)
}

func TestProductService_CreateProductValidation(t *testing.T) {
	service := services.NewProductService(setupStore(t))
	ctx := context.Background()
	high := decimal.NewFromInt(50)

	tests := []struct {
		name string
		in   services.CreateProductInput
	}{
		{"missing name", services.CreateProductInput{ProductType: models.ProductTypeSimple, Simple: &services.PayloadInput{RegularPrice: decimal.NewFromInt(1)}}},
		{"unknown type", services.CreateProductInput{Name: "x", ProductType: "BUNDLE"}},
		{"missing payload", services.CreateProductInput{Name: "x", ProductType: models.ProductTypeGroup}},
		{"zero price", services.CreateProductInput{Name: "x", ProductType: models.ProductTypeSimple, Simple: &services.PayloadInput{}}},
		{"sale above regular", services.CreateProductInput{Name: "x", ProductType: models.ProductTypeSimple, Simple: &services.PayloadInput{RegularPrice: decimal.NewFromInt(10), SalePrice: &high}}},
		{"negative stock", services.CreateProductInput{Name: "x", ProductType: models.ProductTypeExternal, External: &services.ExternalInput{PayloadInput: services.PayloadInput{RegularPrice: decimal.NewFromInt(10), Stock: intPtr(-1)}}}},
		{"bad status", services.CreateProductInput{Name: "x", ProductType: models.ProductTypeSimple, Status: "GONE", Simple: &services.PayloadInput{RegularPrice: decimal.NewFromInt(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateProduct(ctx, tt.in)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestProductService_UpdateProduct(t *testing.T) {
	store := setupStore(t)
	service := services.NewProductService(store)
	ctx := context.Background()
	p := seedSimple(t, store, "old", 20, intPtr(1))

	updated, err := service.UpdateProduct(ctx, p.ID, services.ProductPatch{
		Name:      strPtr("Brand New Name"),
		SalePrice: decimalPtr(15),
		Stock:     intPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "brand-new-name", updated.Slug)

	got, err := service.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brand New Name", got.Name)
	assert.True(t, got.Simple.EffectivePrice().Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 7, *got.Simple.Stock)

	_, err = service.UpdateProduct(ctx, p.ID, services.ProductPatch{ClearSalePrice: true})
	require.NoError(t, err)
	got, err = service.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Simple.SalePrice.Valid)

	_, err = service.UpdateProduct(ctx, p.ID, services.ProductPatch{SalePrice: decimalPtr(99)})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = service.UpdateProduct(ctx, "missing", services.ProductPatch{Stock: intPtr(1)})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestProductService_ListAndDelete(t *testing.T) {
	store := setupStore(t)
	service := services.NewProductService(store)
	ctx := context.Background()
	keep := seedSimple(t, store, "keep", 1, nil)
	drop := seedSimple(t, store, "drop", 1, nil)

	require.NoError(t, service.DeleteProduct(ctx, drop.ID))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(service.DeleteProduct(ctx, drop.ID)))

	_, err := service.GetProductByID(ctx, drop.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	products, pagination, err := service.ListProducts(ctx, repositories.ProductFilter{}, repositories.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, keep.ID, products[0].ID)
	assert.Equal(t, int64(1), pagination.TotalItems)

	_, _, err = service.ListProducts(ctx, repositories.ProductFilter{ProductType: "BUNDLE"}, repositories.Page{Number: 1, Limit: 10})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestProductService_HiddenStatusesAreAdminOnly(t *testing.T) {
	store := setupStore(t)
	service := services.NewProductService(store)
	ctx := context.Background()
	live := seedSimple(t, store, "live", 1, nil)
	draft := seedSimple(t, store, "draft", 1, nil)
	status := models.ProductStatusDraft
	_, err := service.UpdateProduct(ctx, draft.ID, services.ProductPatch{Status: &status})
	require.NoError(t, err)

	customer := services.Actor{UserID: "u1", Role: models.RoleCustomer}
	admin := services.Actor{UserID: "a1", Role: models.RoleAdmin}
	page := repositories.Page{Number: 1, Limit: 10}

	_, err = service.GetVisibleProduct(ctx, customer, draft.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = service.GetVisibleProduct(ctx, services.Actor{}, draft.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	got, err := service.GetVisibleProduct(ctx, admin, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusDraft, got.Status)

	products, _, err := service.ListVisibleProducts(ctx, customer, repositories.ProductFilter{Status: models.ProductStatusDraft}, page)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, live.ID, products[0].ID)

	products, _, err = service.ListVisibleProducts(ctx, admin, repositories.ProductFilter{}, page)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
