package repositories

import (
	"context"

	"nftmarket/internal/models"
)

// UserRepository defines the interface for user and social graph data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateFields(ctx context.Context, user *models.User, fields []string) error
	Search(ctx context.Context, query string, page Page) ([]models.User, int64, error)

	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	Followers(ctx context.Context, userID string) ([]models.UserSummary, error)
	Following(ctx context.Context, userID string) ([]models.UserSummary, error)
}
