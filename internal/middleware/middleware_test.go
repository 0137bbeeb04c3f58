package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"nftmarket/internal/handlers"
	"nftmarket/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test_jwt_secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthApp() *fiber.App {
	logs := zap.NewNop().Sugar()
	authService := services.NewAuthService(logs, nil, nil, testSecret, time.Hour)

	app := fiber.New()
	app.Get("/private", AuthRequired(logs, authService), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userId":   c.Locals(handlers.LocalUserID),
			"username": c.Locals(handlers.LocalUsername),
		})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id":  "user-1",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	foreign := signToken(t, "other_secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"foreign secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	app := newAuthApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user-1", body["userId"])
				assert.Equal(t, "alice", body["username"])
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(zap.NewNop().Sugar(), 0.001, 2)

	app := fiber.New()
	app.Post("/login", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimiter_PerClient(t *testing.T) {
	limiter := NewRateLimiter(zap.NewNop().Sugar(), 0.001, 1)

	assert.True(t, limiter.getLimiter("10.0.0.1").Allow())
	assert.False(t, limiter.getLimiter("10.0.0.1").Allow())
	assert.True(t, limiter.getLimiter("10.0.0.2").Allow())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(zap.NewNop().Sugar(), 1, 1)
	for i := 0; i <= maxTrackedClients; i++ {
		limiter.limiters["client-"+strconv.Itoa(i)] = nil
	}
	limiter.Cleanup()
	assert.Empty(t, limiter.limiters)

	limiter.getLimiter("a")
	limiter.Cleanup()
	assert.Len(t, limiter.limiters, 1)
}
