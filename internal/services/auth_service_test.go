package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"nftmarket/internal/models"
	"nftmarket/internal/repositories"
	"nftmarket/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func newAuthService(repo *MockUserRepository) *services.AuthService {
	return services.NewAuthService(zap.NewNop().Sugar(), repo, nil, testJWTSecret, time.Hour)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	input := services.RegisterInput{
		Username:      "testuser",
		Email:         "test@example.com",
		Password:      "password123",
		WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
	}

	// Test successful registration
	mockRepo.On("GetByUsername", ctx, input.Username).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", ctx, input.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, token, err := authService.RegisterUser(ctx, input)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, input.Username, user.Username)
	require.NotNil(t, user.WalletAddress)
	assert.Equal(t, input.WalletAddress, *user.WalletAddress)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)))
	mockRepo.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("GetByUsername", ctx, input.Username).Return(&models.User{ID: "1"}, nil).Once()
	_, _, err = authService.RegisterUser(ctx, input)
	assert.ErrorIs(t, err, services.ErrUsernameTaken)
	assert.ErrorIs(t, err, services.ErrConflict)
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByUsername", ctx, input.Username).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", ctx, input.Email).Return(&models.User{ID: "1"}, nil).Once()
	_, _, err = authService.RegisterUser(ctx, input)
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterUserClearsMarketStats(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	cache := newMemoryCache()
	authService := services.NewAuthService(zap.NewNop().Sugar(), mockRepo, cache, testJWTSecret, time.Hour)

	require.NoError(t, cache.Set(ctx, "market:stats", models.MarketStats{TotalUsers: 1}, time.Minute))

	mockRepo.On("GetByUsername", ctx, "newcomer").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", ctx, "newcomer@example.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	_, _, err := authService.RegisterUser(ctx, services.RegisterInput{
		Username: "newcomer",
		Email:    "newcomer@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	var stats models.MarketStats
	found, err := cache.Get(ctx, "market:stats", &stats)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, cache.deletes)
}

func TestAuthService_RegisterUserValidation(t *testing.T) {
	authService := newAuthService(new(MockUserRepository))

	_, _, err := authService.RegisterUser(context.Background(), services.RegisterInput{
		Username:      "ab",
		Email:         "not-an-email",
		Password:      "123",
		WalletAddress: "0x123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrValidation)

	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"email", "password", "username", "walletAddress"}, fields)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	token, loggedIn, err := authService.LoginUser(ctx, user.Email, "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	_, _, err = authService.LoginUser(ctx, user.Email, "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, repositories.ErrNotFound).Once()
	_, _, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository))

	// Generate a valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	foreignToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	foreignTokenString, _ := foreignToken.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(foreignTokenString)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	existing := &models.User{ID: "user-1", Username: "alice"}
	mockRepo.On("GetByID", ctx, "user-1").Return(existing, nil).Once()
	mockRepo.On("GetByUsername", ctx, "alice2").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("UpdateFields", ctx, existing, []string{"username", "bio"}).Return(nil).Once()

	name, bio := "alice2", "collector"
	updated, err := authService.UpdateProfile(ctx, "user-1", services.ProfileUpdate{Username: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "collector", updated.Bio)
	mockRepo.AssertExpectations(t)

	badWallet := "0xnothex"
	_, err = authService.UpdateProfile(ctx, "user-1", services.ProfileUpdate{WalletAddress: &badWallet})
	assert.ErrorIs(t, err, services.ErrValidation)
}
