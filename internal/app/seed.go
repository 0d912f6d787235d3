package app

import (
	"context"
	"fmt"
	"log"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
)

const (
	DemoAdminEmail    = "admin@storefront.local"
	DemoAdminPassword = "admin12345"
)

// SeedDemo creates an admin account and a few active products. It is a
// no-op for data that already exists.
func SeedDemo(ctx context.Context, svc *Services) error {
	admin := &models.User{Name: "Store Admin", Email: DemoAdminEmail, Password: DemoAdminPassword, Role: models.RoleAdmin}
	switch err := svc.Auth.RegisterUser(ctx, admin); {
	case err == nil:
		log.Printf("Seeded admin user %s", DemoAdminEmail)
	case apperrors.KindOf(err) == apperrors.KindConflict:
	default:
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	_, pagination, err := svc.Products.ListProducts(ctx, repositories.ProductFilter{}, repositories.Page{Number: 1, Limit: 1})
	if err != nil {
		return err
	}
	if pagination.TotalItems > 0 {
		return nil
	}

	stock := func(n int) *int { return &n }
	demo := []services.CreateProductInput{
		{
			Name:        "Laptop",
			Description: "High performance laptop",
			ProductType: models.ProductTypeSimple,
			Status:      models.ProductStatusActive,
			Simple:      &services.PayloadInput{RegularPrice: decimal.NewFromInt(1200), Stock: stock(10)},
		},
		{
			Name:        "Mechanical Keyboard",
			Description: "Hot-swappable switches",
			ProductType: models.ProductTypeVariable,
			Status:      models.ProductStatusActive,
			Variations: []services.VariationInput{
				{Name: "Brown switches", PayloadInput: services.PayloadInput{RegularPrice: decimal.NewFromInt(75), Stock: stock(25)}},
				{Name: "Red switches", PayloadInput: services.PayloadInput{RegularPrice: decimal.NewFromInt(80), Stock: stock(15)}},
			},
		},
		{
			Name:        "Gift Card",
			Description: "Redeemable online",
			ProductType: models.ProductTypeSimple,
			Status:      models.ProductStatusActive,
			Simple:      &services.PayloadInput{RegularPrice: decimal.NewFromInt(50)},
		},
	}
	for _, in := range demo {
		p, err := svc.Products.CreateProduct(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", in.Name, err)
		}
		log.Printf("Seeded product: %s (ID: %s)", p.Name, p.ID)
	}
	return nil
}
