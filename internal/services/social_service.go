package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nftmarket/internal/models"
	"nftmarket/internal/repositories"

	"go.uber.org/zap"
)

const defaultUserPageSize = 10

// SocialService handles profiles and the follow graph.
type SocialService struct {
	logs     *zap.SugaredLogger
	userRepo repositories.UserRepository
	events   EventPublisher
}

// NewSocialService creates a new SocialService. events may be nil.
func NewSocialService(logger *zap.SugaredLogger, userRepo repositories.UserRepository, events EventPublisher) *SocialService {
	return &SocialService{
		logs:     logger,
		userRepo: userRepo,
		events:   events,
	}
}

func (s *SocialService) user(ctx context.Context, id string) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return u, nil
}

// GetProfile returns the public profile of a user with the follow graph
// filled in.
func (s *SocialService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Email = ""
	if u.Followers, err = s.userRepo.FollowerIDs(ctx, id); err != nil {
		return nil, err
	}
	if u.Following, err = s.userRepo.FollowingIDs(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

// Follow makes followerID follow targetID.
func (s *SocialService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.user(ctx, targetID); err != nil {
		return err
	}

	following, err := s.userRepo.IsFollowing(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if following {
		return ErrAlreadyFollowing
	}

	if err := s.userRepo.Follow(ctx, followerID, targetID); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return ErrAlreadyFollowing
		}
		return err
	}

	publish(ctx, s.logs, s.events, EventUserFollowed, map[string]interface{}{
		"followerId":  followerID,
		"followingId": targetID,
	})
	return nil
}

// Unfollow removes the follow relation. Unfollowing a user that is not
// followed succeeds without change.
func (s *SocialService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if _, err := s.user(ctx, targetID); err != nil {
		return err
	}
	return s.userRepo.Unfollow(ctx, followerID, targetID)
}

// Followers lists the users following id.
func (s *SocialService) Followers(ctx context.Context, id string) ([]models.UserSummary, error) {
	if _, err := s.user(ctx, id); err != nil {
		return nil, err
	}
	return s.userRepo.Followers(ctx, id)
}

// Following lists the users id follows.
func (s *SocialService) Following(ctx context.Context, id string) ([]models.UserSummary, error) {
	if _, err := s.user(ctx, id); err != nil {
		return nil, err
	}
	return s.userRepo.Following(ctx, id)
}

// UserPage is one page of a user search.
type UserPage struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// SearchUsers matches query against usernames and bios.
func (s *SocialService) SearchUsers(ctx context.Context, query string, page, limit int) (*UserPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "search query is required")
	}

	p := clampPage(page, limit, defaultUserPageSize)
	users, total, err := s.userRepo.Search(ctx, query, p)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Email = ""
	}
	return &UserPage{Users: users, Pagination: paginate(p, total)}, nil
}
