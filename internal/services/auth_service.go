package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"nftmarket/internal/models"
	"nftmarket/internal/repositories"
	"nftmarket/pkg/chain"

	"github.com/dgrijalva/jwt-go"
	"github.com/jellydator/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

var walletRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if p, ok := value.(*string); ok && p != nil {
		s = *p
	}
	if s != "" && !chain.IsWalletAddress(s) {
		return errors.New("must be a valid Ethereum wallet address")
	}
	return nil
})

var errInvalidToken = newError(ErrUnauthorized, "Invalid or expired token")

// AuthService handles business logic for authentication and profiles.
type AuthService struct {
	logs       *zap.SugaredLogger
	userRepo   repositories.UserRepository
	cache      Cache
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
// cache may be nil.
func NewAuthService(logger *zap.SugaredLogger, userRepo repositories.UserRepository, cache Cache, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		logs:       logger,
		userRepo:   userRepo,
		cache:      cache,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
	}
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Bio           string `json:"bio"`
	ProfileImage  string `json:"profileImage"`
	WalletAddress string `json:"walletAddress"`
}

// Validate implements validation.Validatable.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(3, 30), validation.Match(usernamePattern)),
		validation.Field(&in.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&in.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&in.Bio, validation.Length(0, 500)),
		validation.Field(&in.WalletAddress, walletRule),
	)
}

// RegisterUser validates and stores a new user with a hashed password and
// returns it together with a session token.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if err := fromValidation(in.Validate()); err != nil {
		return nil, "", err
	}

	// Check if username or email already exists
	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return nil, "", ErrUsernameTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		Password:     string(hashedPassword),
		Bio:          in.Bio,
		ProfileImage: in.ProfileImage,
	}
	if in.WalletAddress != "" {
		wallet := in.WalletAddress
		user.WalletAddress = &wallet
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, "", newError(ErrConflict, "Username or email already in use")
		}
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}
	invalidateAggregates(ctx, s.logs, s.cache)

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logs.Infow("user registered", "user_id", user.ID, "username", user.Username)
	return user, token, nil
}

// LoginUser authenticates a user by email and password and returns a JWT
// token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	if id, _ := claims["user_id"].(string); id == "" {
		return nil, fmt.Errorf("%w: missing user_id", errInvalidToken)
	}
	return claims, nil
}

// Me returns the authenticated user's own account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// ProfileUpdate lists the profile fields a user may change. Nil fields
// are left untouched.
type ProfileUpdate struct {
	Username      *string `json:"username"`
	Bio           *string `json:"bio"`
	ProfileImage  *string `json:"profileImage"`
	WalletAddress *string `json:"walletAddress"`
}

// Validate implements validation.Validatable.
func (in ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.NilOrNotEmpty, validation.Length(3, 30), validation.Match(usernamePattern)),
		validation.Field(&in.Bio, validation.Length(0, 500)),
		validation.Field(&in.WalletAddress, walletRule),
	)
}

// UpdateProfile applies a profile change for userID and returns the
// updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	if err := fromValidation(in.Validate()); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if in.Username != nil && *in.Username != user.Username {
		if _, err := s.userRepo.GetByUsername(ctx, *in.Username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		user.Username = *in.Username
		fields = append(fields, "username")
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
		fields = append(fields, "bio")
	}
	if in.ProfileImage != nil {
		user.ProfileImage = *in.ProfileImage
		fields = append(fields, "profile_image")
	}
	if in.WalletAddress != nil {
		if *in.WalletAddress == "" {
			user.WalletAddress = nil
		} else {
			wallet := *in.WalletAddress
			user.WalletAddress = &wallet
		}
		fields = append(fields, "wallet_address")
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(ctx, user, fields); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
