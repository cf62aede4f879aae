package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/apierr"
)

const minPasswordLength = 8

// Claims are the JWT claims carried by a session token.
type Claims struct {
	UserType UserType `json:"user_type"`
	jwt.RegisteredClaims
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	UserType UserType `json:"user_type"`
}

// LoginRequest is the payload for session creation.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Service provides account business logic.
type Service struct {
	repo          Repository
	logger        *zap.Logger
	jwtSecret     []byte
	tokenTTL      time.Duration
	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewService creates a new accounts service.
func NewService(repo Repository, logger *zap.Logger, jwtSecret string, tokenTTL, resetTokenTTL time.Duration) *Service {
	return &Service{
		repo:          repo,
		logger:        logger,
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      tokenTTL,
		resetTokenTTL: resetTokenTTL,
		now:           time.Now,
	}
}

// Register creates a new buyer or owner account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var fields []apierr.FieldError
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields = append(fields, apierr.FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if len(req.Password) < minPasswordLength {
		fields = append(fields, apierr.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if strings.TrimSpace(req.FullName) == "" {
		fields = append(fields, apierr.FieldError{Field: "full_name", Message: "is required"})
	}
	if req.UserType == "" {
		req.UserType = UserTypeBuyer
	}
	if !ValidUserType(req.UserType) {
		fields = append(fields, apierr.FieldError{Field: "user_type", Message: "must be buyer or owner"})
	}
	if len(fields) > 0 {
		return nil, apierr.Invalid("registration request is invalid", fields...)
	}

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, apierr.New(apierr.KindConflict, "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		UserType:     req.UserType,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "failed to create account", err)
	}

	s.logger.Info("Account registered",
		zap.String("user_id", user.ID.String()),
		zap.String("user_type", string(user.UserType)))
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(apierr.KindUnauthenticated, "invalid email or password")
		}
		return nil, apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apierr.New(apierr.KindUnauthenticated, "invalid email or password")
	}

	expiresAt := s.now().Add(s.tokenTTL)
	claims := Claims{
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ParseToken validates a session token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.New(apierr.KindUnauthenticated, "invalid or expired session token")
	}
	return claims, nil
}

// GetUser loads an account by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(apierr.KindNotFound, "account not found")
		}
		return nil, apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}
	return user, nil
}

// RequestPasswordReset issues a one-time reset token for the given email.
// The response never reveals whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	record := &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashResetToken(token),
		ExpiresAt: s.now().Add(s.resetTokenTTL),
	}
	if err := s.repo.CreateResetToken(ctx, record); err != nil {
		return apierr.Wrap(apierr.KindUnavailable, "failed to store reset token", err)
	}

	// No mail channel is wired; the token is surfaced through logs for the
	// operator to deliver.
	s.logger.Info("Password reset token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("token", token),
		zap.Time("expires_at", record.ExpiresAt))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apierr.Invalid("reset request is invalid",
			apierr.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}

	record, err := s.repo.GetResetTokenByHash(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.New(apierr.KindInvalid, "reset token is invalid or expired")
		}
		return apierr.Wrap(apierr.KindUnavailable, "account store unavailable", err)
	}
	if record.UsedAt != nil || s.now().After(record.ExpiresAt) {
		return apierr.New(apierr.KindInvalid, "reset token is invalid or expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, record.UserID, string(hash)); err != nil {
		return apierr.Wrap(apierr.KindUnavailable, "failed to update password", err)
	}
	if err := s.repo.MarkResetTokenUsed(ctx, record.ID, s.now()); err != nil {
		return apierr.Wrap(apierr.KindUnavailable, "failed to consume reset token", err)
	}

	s.logger.Info("Password reset completed", zap.String("user_id", record.UserID.String()))
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
