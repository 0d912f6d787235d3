package repositories

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/database"
	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

func (r *GORMProductRepository) withPayloads(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Simple").
		Preload("Variations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Group").
		Preload("External")
}

// GetByID retrieves a live product with its type payload.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.withPayloads(ctx).
		Where("lifecycle = ?", models.LifecycleActive).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get product by ID %s", id)
	}
	return &product, nil
}

func productFilterScope(filter ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("lifecycle = ?", models.LifecycleActive)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.ProductType != "" {
			q = q.Where("product_type = ?", filter.ProductType)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
		}
		return q
	}
}

// List returns one page of live products and the total match count.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter, page Page) ([]models.Product, int64, error) {
	scope := productFilterScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := r.withPayloads(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// Create inserts a product together with its payload rows.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Simple != nil && product.Simple.ID == "" {
		product.Simple.ID = uuid.New().String()
	}
	for i := range product.Variations {
		if product.Variations[i].ID == "" {
			product.Variations[i].ID = uuid.New().String()
		}
	}
	if product.Group != nil && product.Group.ID == "" {
		product.Group.ID = uuid.New().String()
	}
	if product.External != nil && product.External.ID == "" {
		product.External.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: slug %s: %w", ErrDuplicate, product.Slug, err)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update saves the editable product columns and its primary payload.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	db := r.db.WithContext(ctx)
	res := db.Model(product).
		Where("lifecycle = ?", models.LifecycleActive).
		Select("name", "slug", "description", "status", "updated_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	var payload any
	switch product.ProductType {
	case models.ProductTypeSimple:
		if product.Simple != nil {
			payload = product.Simple
		}
	case models.ProductTypeVariable:
		if len(product.Variations) > 0 {
			payload = &product.Variations[0]
		}
	case models.ProductTypeGroup:
		if product.Group != nil {
			payload = product.Group
		}
	case models.ProductTypeExternal:
		if product.External != nil {
			payload = product.External
		}
	}
	if payload == nil {
		return nil
	}
	if err := db.Save(payload).Error; err != nil {
		return fmt.Errorf("failed to update product payload: %w", err)
	}
	return nil
}

// SoftDelete marks a live product as trashed.
func (r *GORMProductRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND lifecycle = ?", id, models.LifecycleActive).
		Update("lifecycle", models.LifecycleTrashed)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GORMProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// AdjustStock ignores the product lifecycle so stock can be restored for
// products trashed after an order was placed.
func (r *GORMProductRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	if delta == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	var product models.Product
	if err := db.Select("id", "product_type").First(&product, "id = ?", productID).Error; err != nil {
		return notFoundOr(err, "failed to load product %s for stock update", productID)
	}

	var payload struct {
		ID    string
		Stock *int
	}
	var table string
	q := db.Where("product_id = ?", productID)
	switch product.ProductType {
	case models.ProductTypeSimple:
		table = "product_simples"
	case models.ProductTypeGroup:
		table = "product_groups"
	case models.ProductTypeExternal:
		table = "product_externals"
	case models.ProductTypeVariable:
		table = "product_variations"
		q = q.Order("position ASC")
	default:
		return fmt.Errorf("product %s has unknown type %q", productID, product.ProductType)
	}
	if err := q.Table(table).Select("id", "stock").Take(&payload).Error; err != nil {
		return notFoundOr(err, "failed to read stock for product %s", productID)
	}
	if payload.Stock == nil {
		return nil
	}

	upd := db.Table(table).Where("id = ? AND stock IS NOT NULL", payload.ID)
	if delta < 0 {
		upd = upd.Where("stock >= ?", -delta)
	}
	res := upd.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}
