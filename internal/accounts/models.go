package accounts

import (
	"time"

	"github.com/google/uuid"
)

// UserType is the role attached to an account.
type UserType string

const (
	UserTypeBuyer UserType = "buyer"
	UserTypeOwner UserType = "owner"
	UserTypeAdmin UserType = "admin"
)

// ValidUserType reports whether t is one of the registerable roles.
// Admin accounts are provisioned out of band, never via the API.
func ValidUserType(t UserType) bool {
	return t == UserTypeBuyer || t == UserTypeOwner
}

// User represents a marketplace account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name" gorm:"not null"`
	Phone        string    `json:"phone"`
	UserType     UserType  `json:"user_type" gorm:"type:varchar(20);not null;default:'buyer';index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// PasswordResetToken is a single-use, expiring reset credential. Only the
// SHA-256 of the issued token is stored.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }
