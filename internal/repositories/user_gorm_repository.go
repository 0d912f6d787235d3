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

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Create creates a new user in the database. Emails are stored lower-cased.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if user.Lifecycle == "" {
		user.Lifecycle = models.LifecycleActive
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: email %s: %w", ErrDuplicate, user.Email, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a live user by email.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	err := r.db.WithContext(ctx).
		Where("lifecycle = ?", models.LifecycleActive).
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get user by email %s", email)
	}
	return &user, nil
}

// GetByID retrieves a live user by ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("lifecycle = ?", models.LifecycleActive).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get user by ID %s", id)
	}
	return &user, nil
}
