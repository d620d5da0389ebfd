package user

import (
	"context"
	"strings"

	"constructure/internal/domain"

	"gorm.io/gorm"
)

const searchLimit = 20

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	IncreaseTokenVersion(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]domain.User, error)
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncreaseTokenVersion revokes every token issued to the user so far
func (r *UserRepositoryImpl) IncreaseTokenVersion(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search matches active users by email, username or name, case-insensitively
func (r *UserRepositoryImpl) Search(ctx context.Context, query string) ([]domain.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(
			"LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(COALESCE(first_name, '')) LIKE ? OR LOWER(COALESCE(last_name, '')) LIKE ?",
			pattern, pattern, pattern, pattern,
		).
		Order("username ASC").
		Limit(searchLimit).
		Find(&users).Error
	return users, err
}
