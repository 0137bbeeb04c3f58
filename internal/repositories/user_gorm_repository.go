package repositories

import (
	"context"
	"fmt"
	"time"

	"nftmarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (r *GORMUserRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, column+" = ?", value).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by %s %s: %w", column, value, translate(err))
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// UpdateFields writes the named profile columns of user.
func (r *GORMUserRepository) UpdateFields(ctx context.Context, user *models.User, fields []string) error {
	user.UpdatedAt = time.Now()
	columns := append(append([]string{}, fields...), "updated_at")
	res := r.db.WithContext(ctx).Model(user).Select(columns).Updates(user)
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for update: %w", user.ID, ErrNotFound)
	}
	return nil
}

// Search matches username or bio case-insensitively and returns one page
// of public profiles plus the total number of matches.
func (r *GORMUserRepository) Search(ctx context.Context, query string, page Page) ([]models.User, int64, error) {
	like := "LIKE ?" + likeEscapeClause(r.db)
	pattern := containsPattern(query)
	matching := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Where("(LOWER(username) "+like+" OR LOWER(bio) "+like+")", pattern, pattern)
	}

	var total int64
	if err := matching().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := make([]models.User, 0, page.Size)
	err := matching().
		Select("id", "username", "profile_image", "bio", "total_sales", "total_purchases", "created_at", "updated_at").
		Order("username ASC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	return users, total, nil
}

// Follow records that followerID follows followingID.
func (r *GORMUserRepository) Follow(ctx context.Context, followerID, followingID string) error {
	edge := models.Follow{FollowerID: followerID, FollowingID: followingID}
	if err := r.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return fmt.Errorf("failed to follow user: %w", translate(err))
	}
	return nil
}

// Unfollow removes the follow edge. Removing an absent edge is a no-op.
func (r *GORMUserRepository) Unfollow(ctx context.Context, followerID, followingID string) error {
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	return nil
}

// IsFollowing reports whether the follow edge exists.
func (r *GORMUserRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return n > 0, nil
}

func (r *GORMUserRepository) edgeIDs(ctx context.Context, pluck, match, userID string) ([]string, error) {
	ids := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where(match+" = ?", userID).
		Order("created_at ASC").
		Pluck(pluck, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pluck, err)
	}
	return ids, nil
}

// FollowerIDs lists the ids of users following userID.
func (r *GORMUserRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return r.edgeIDs(ctx, "follower_id", "following_id", userID)
}

// FollowingIDs lists the ids of users userID follows.
func (r *GORMUserRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return r.edgeIDs(ctx, "following_id", "follower_id", userID)
}

func (r *GORMUserRepository) summaries(ctx context.Context, joinOn, match, userID string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0)
	err := r.db.WithContext(ctx).Model(&models.UserSummary{}).
		Select("users.id, users.username, users.profile_image, users.bio").
		Joins("JOIN follows ON follows."+joinOn+" = users.id").
		Where("follows."+match+" = ?", userID).
		Order("follows.created_at ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list related users: %w", err)
	}
	return out, nil
}

// Followers resolves the users following userID.
func (r *GORMUserRepository) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return r.summaries(ctx, "follower_id", "following_id", userID)
}

// Following resolves the users userID follows.
func (r *GORMUserRepository) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return r.summaries(ctx, "following_id", "follower_id", userID)
}
