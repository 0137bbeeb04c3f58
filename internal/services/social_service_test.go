package services_test

import (
	"context"
	"testing"

	"nftmarket/internal/models"
	"nftmarket/internal/repositories"
	"nftmarket/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSocialService_Follow(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	events := new(MockPublisher)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, events)

	repo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob"}, nil)
	repo.On("IsFollowing", ctx, "alice", "bob").Return(false, nil).Once()
	repo.On("Follow", ctx, "alice", "bob").Return(nil).Once()
	events.On("PublishEvent", ctx, services.EventUserFollowed, map[string]interface{}{
		"followerId":  "alice",
		"followingId": "bob",
	}).Return(nil).Once()

	require.NoError(t, svc.Follow(ctx, "alice", "bob"))

	repo.On("IsFollowing", ctx, "alice", "bob").Return(true, nil).Once()
	assert.ErrorIs(t, svc.Follow(ctx, "alice", "bob"), services.ErrAlreadyFollowing)

	assert.ErrorIs(t, svc.Follow(ctx, "alice", "alice"), services.ErrSelfFollow)

	repo.On("GetByID", ctx, "ghost").Return(nil, repositories.ErrNotFound).Once()
	assert.ErrorIs(t, svc.Follow(ctx, "alice", "ghost"), services.ErrNotFound)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestSocialService_FollowDuplicateRace(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, nil)

	repo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob"}, nil)
	repo.On("IsFollowing", ctx, "alice", "bob").Return(false, nil).Once()
	repo.On("Follow", ctx, "alice", "bob").Return(repositories.ErrDuplicate).Once()

	assert.ErrorIs(t, svc.Follow(ctx, "alice", "bob"), services.ErrAlreadyFollowing)
}

func TestSocialService_Unfollow(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, nil)

	repo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob"}, nil)
	repo.On("Unfollow", ctx, "alice", "bob").Return(nil).Twice()

	require.NoError(t, svc.Unfollow(ctx, "alice", "bob"))
	// unfollowing again is not an error
	require.NoError(t, svc.Unfollow(ctx, "alice", "bob"))

	repo.On("GetByID", ctx, "ghost").Return(nil, repositories.ErrNotFound).Once()
	assert.ErrorIs(t, svc.Unfollow(ctx, "alice", "ghost"), services.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestSocialService_GetProfile(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, nil)

	repo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob", Email: "bob@example.com", Password: "hash"}, nil).Once()
	repo.On("FollowerIDs", ctx, "bob").Return([]string{"alice"}, nil).Once()
	repo.On("FollowingIDs", ctx, "bob").Return([]string{}, nil).Once()

	profile, err := svc.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, profile.Followers)
	assert.Empty(t, profile.Following)
	assert.Empty(t, profile.Email)
	repo.AssertExpectations(t)
}

func TestSocialService_FollowersAndFollowing(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, nil)

	repo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob"}, nil)
	repo.On("Followers", ctx, "bob").Return([]models.UserSummary{{ID: "alice", Username: "alice"}}, nil).Once()
	repo.On("Following", ctx, "bob").Return([]models.UserSummary{}, nil).Once()

	followers, err := svc.Followers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	following, err := svc.Following(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, following)

	repo.On("GetByID", ctx, "ghost").Return(nil, repositories.ErrNotFound).Once()
	_, err = svc.Followers(ctx, "ghost")
	assert.ErrorIs(t, err, services.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestSocialService_SearchUsers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := services.NewSocialService(zap.NewNop().Sugar(), repo, nil)

	_, err := svc.SearchUsers(ctx, "   ", 1, 10)
	assert.ErrorIs(t, err, services.ErrValidation)
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)

	repo.On("Search", ctx, "ali", repositories.Page{Number: 2, Size: 10}).
		Return([]models.User{{ID: "alice", Username: "alice", Email: "a@example.com"}}, int64(11), nil).Once()

	page, err := svc.SearchUsers(ctx, "ali", 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Empty(t, page.Users[0].Email)
	assert.Equal(t, services.Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 11, ItemsPerPage: 10}, page.Pagination)
	repo.AssertExpectations(t)
}
