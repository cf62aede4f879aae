package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines account data access.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	CreateResetToken(ctx context.Context, token *PasswordResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a Postgres-backed account repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateUser(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *gormRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *gormRepository) CreateResetToken(ctx context.Context, token *PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *gormRepository) GetResetTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	var token PasswordResetToken
	if err := r.db.WithContext(ctx).First(&token, "token_hash = ?", tokenHash).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *gormRepository) MarkResetTokenUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&PasswordResetToken{}).
		Where("id = ?", id).
		Update("used_at", usedAt).Error
}
