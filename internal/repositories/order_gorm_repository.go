package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var orderSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"totalAmount": "total_amount",
	"orderStatus": "order_status",
}

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order header and its line snapshots.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Lifecycle == "" {
		order.Lifecycle = models.LifecycleActive
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a live order with its items and customer.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("User").
		Where("lifecycle = ?", models.LifecycleActive).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get order by ID %s", id)
	}
	order.ItemCount = int64(len(order.Items))
	return &order, nil
}

func orderFilterScope(filter OrderFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("lifecycle = ?", models.LifecycleActive)
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.OrderStatus != "" {
			q = q.Where("order_status = ?", filter.OrderStatus)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		if filter.PaymentMethod != "" {
			q = q.Where("payment_method = ?", filter.PaymentMethod)
		}
		if filter.StartDate != nil {
			q = q.Where("created_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("created_at <= ?", *filter.EndDate)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where(
				"(LOWER(id) LIKE ? OR LOWER(order_number) LIKE ? OR LOWER(tracking_number) LIKE ? OR user_id IN (?))",
				like, like, like,
				q.Session(&gorm.Session{NewDB: true}).Model(&models.User{}).
					Select("id").
					Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like),
			)
		}
		return q
	}
}

// List returns one page of live orders with their customer and line count.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	scope := orderFilterScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	column, ok := orderSortColumns[filter.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Scopes(scope).
		Order(column + " " + direction).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	var counts []struct {
		OrderID string
		Count   int64
	}
	err = r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("order_id, COUNT(*) AS count").
		Where("order_id IN ?", ids).
		Group("order_id").
		Scan(&counts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count order items: %w", err)
	}
	byOrder := make(map[string]int64, len(counts))
	for _, c := range counts {
		byOrder[c.OrderID] = c.Count
	}
	for i := range orders {
		orders[i].ItemCount = byOrder[orders[i].ID]
	}
	return orders, total, nil
}

// UpdateStatus persists order status, payment status and tracking number.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Model(order).
		Where("lifecycle = ?", models.LifecycleActive).
		Select("order_status", "payment_status", "tracking_number", "updated_at").
		Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GORMOrderRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND lifecycle = ?", id, models.LifecycleActive).
		Update("lifecycle", models.LifecycleTrashed)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates live orders. Revenue only counts orders whose payment
// completed.
func (r *GORMOrderRepository) Stats(ctx context.Context, since time.Time) (*models.OrderStats, error) {
	db := r.db.WithContext(ctx)
	live := func() *gorm.DB {
		return db.Model(&models.Order{}).Where("lifecycle = ?", models.LifecycleActive)
	}
	stats := &models.OrderStats{
		OrderStatusCounts:   map[models.OrderStatus]int64{},
		PaymentStatusCounts: map[models.PaymentStatus]int64{},
	}

	if err := live().Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := live().Where("created_at >= ?", since).Count(&stats.OrdersInPeriod).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders in period: %w", err)
	}

	revenue := func(q *gorm.DB) (decimal.Decimal, error) {
		var sum decimal.NullDecimal
		err := q.Where("payment_status = ?", models.PaymentStatusCompleted).
			Select("SUM(total_amount)").
			Row().
			Scan(&sum)
		if err != nil {
			return decimal.Zero, err
		}
		if !sum.Valid {
			return decimal.Zero, nil
		}
		return sum.Decimal, nil
	}
	var err error
	if stats.TotalRevenue, err = revenue(live()); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if stats.RevenueInPeriod, err = revenue(live().Where("created_at >= ?", since)); err != nil {
		return nil, fmt.Errorf("failed to sum revenue in period: %w", err)
	}

	var byStatus []struct {
		OrderStatus models.OrderStatus
		Count       int64
	}
	if err := live().Select("order_status, COUNT(*) AS count").Group("order_status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group orders by status: %w", err)
	}
	for _, row := range byStatus {
		stats.OrderStatusCounts[row.OrderStatus] = row.Count
	}

	var byPayment []struct {
		PaymentStatus models.PaymentStatus
		Count         int64
	}
	if err := live().Select("payment_status, COUNT(*) AS count").Group("payment_status").Scan(&byPayment).Error; err != nil {
		return nil, fmt.Errorf("failed to group orders by payment status: %w", err)
	}
	for _, row := range byPayment {
		stats.PaymentStatusCounts[row.PaymentStatus] = row.Count
	}
	return stats, nil
}
