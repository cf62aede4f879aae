package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/apierr"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *MockRepository) CreateResetToken(ctx context.Context, token *PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRepository) GetResetTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PasswordResetToken), args.Error(1)
}

func (m *MockRepository) MarkResetTokenUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zap.NewNop(), "test-secret", time.Hour, 30*time.Minute)
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "ada@example.com").Return(nil, gorm.ErrRecordNotFound)
	mockRepo.On("CreateUser", ctx, mock.AnythingOfType("*accounts.User")).Return(nil)

	user, err := service.Register(ctx, RegisterRequest{
		Email:    " Ada@Example.com ",
		Password: "correct-horse",
		FullName: "Ada Obi",
		UserType: UserTypeOwner,
	})

	assert.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, UserTypeOwner, user.UserType)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
	mockRepo.AssertExpectations(t)
}

func TestRegisterValidation(t *testing.T) {
	service := newTestService(new(MockRepository))

	_, err := service.Register(context.Background(), RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
		UserType: "admin",
	})

	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))

	var apiErr *apierr.Error
	assert.ErrorAs(t, err, &apiErr)
	// email, password, full_name and user_type are all reported at once.
	assert.Len(t, apiErr.Fields, 4)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "ada@example.com").Return(&User{ID: uuid.New()}, nil)

	_, err := service.Register(ctx, RegisterRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
		FullName: "Ada Obi",
	})

	assert.Equal(t, apierr.KindConflict, apierr.KindOf(err))
}

func TestLoginAndParseToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	user := &User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: string(hash), UserType: UserTypeAdmin}
	mockRepo.On("GetUserByEmail", ctx, "ada@example.com").Return(user, nil)

	session, err := service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	assert.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	claims, err := service.ParseToken(session.Token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, UserTypeAdmin, claims.UserType)
}

func TestLoginWrongPassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mockRepo.On("GetUserByEmail", ctx, "ada@example.com").
		Return(&User{ID: uuid.New(), PasswordHash: string(hash)}, nil)

	_, err := service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong"})

	assert.Equal(t, apierr.KindUnauthenticated, apierr.KindOf(err))
	assert.EqualError(t, err, "unauthenticated: invalid email or password")
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	_, err := service.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "anything"})

	// Same message as a wrong password, so the endpoint cannot be used to
	// probe which emails are registered.
	assert.EqualError(t, err, "unauthenticated: invalid email or password")
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	service := newTestService(new(MockRepository))

	_, err := service.ParseToken("not.a.token")

	assert.Equal(t, apierr.KindUnauthenticated, apierr.KindOf(err))
}

func TestRequestPasswordResetUnknownEmailSucceeds(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	assert.NoError(t, service.RequestPasswordReset(ctx, "ghost@example.com"))
	mockRepo.AssertNotCalled(t, "CreateResetToken", mock.Anything, mock.Anything)
}

func TestRequestPasswordResetStoresHashedToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()
	user := &User{ID: uuid.New(), Email: "ada@example.com"}

	mockRepo.On("GetUserByEmail", ctx, "ada@example.com").Return(user, nil)
	mockRepo.On("CreateResetToken", ctx, mock.MatchedBy(func(token *PasswordResetToken) bool {
		// The stored hash is a sha256 hex digest, never the raw token.
		return token.UserID == user.ID && len(token.TokenHash) == 64
	})).Return(nil)

	assert.NoError(t, service.RequestPasswordReset(ctx, "ada@example.com"))
	mockRepo.AssertExpectations(t)
}

func TestResetPassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	record := &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: hashResetToken("raw-token"),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	mockRepo.On("GetResetTokenByHash", ctx, record.TokenHash).Return(record, nil)
	mockRepo.On("UpdatePassword", ctx, record.UserID, mock.AnythingOfType("string")).Return(nil)
	mockRepo.On("MarkResetTokenUsed", ctx, record.ID, mock.AnythingOfType("time.Time")).Return(nil)

	assert.NoError(t, service.ResetPassword(ctx, "raw-token", "new-password"))
	mockRepo.AssertExpectations(t)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	record := &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: hashResetToken("raw-token"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	mockRepo.On("GetResetTokenByHash", ctx, record.TokenHash).Return(record, nil)

	err := service.ResetPassword(ctx, "raw-token", "new-password")

	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))
	mockRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPasswordUsedToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	used := time.Now().Add(-time.Hour)
	record := &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: hashResetToken("raw-token"),
		ExpiresAt: time.Now().Add(10 * time.Minute),
		UsedAt:    &used,
	}
	mockRepo.On("GetResetTokenByHash", ctx, record.TokenHash).Return(record, nil)

	err := service.ResetPassword(ctx, "raw-token", "new-password")

	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))
}
