package handlers

import (
	"nftmarket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication and the caller's
// own profile.
type AuthHandler struct {
	logs        *zap.SugaredLogger
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *zap.SugaredLogger, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		logs:        logger,
		authService: authService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes. limit guards the
// credential endpoints and auth protects the profile endpoints.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth, limit fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", limit, h.HandleRegister)
	authRoutes.Post("/login", limit, h.HandleLogin)
	authRoutes.Get("/me", auth, h.HandleMe)
	authRoutes.Put("/profile", auth, h.HandleUpdateProfile)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	Bio           string `json:"bio"`
	ProfileImage  string `json:"profileImage"`
	WalletAddress string `json:"walletAddress"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	user, token, err := h.authService.RegisterUser(c.UserContext(), services.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		Bio:           req.Bio,
		ProfileImage:  req.ProfileImage,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return respondError(c, h.logs, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		h.logs.Infow("login failed", "email", req.Email, "error", err)
		return respondError(c, h.logs, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleMe returns the authenticated user's account.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// HandleUpdateProfile updates the authenticated user's profile.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileUpdate
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
