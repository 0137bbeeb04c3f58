package services_test

import (
	"context"
	"encoding/json"
	"time"

	"nftmarket/internal/models"
	"nftmarket/internal/repositories"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, user *models.User, fields []string) error {
	args := m.Called(ctx, user, fields)
	return args.Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, page repositories.Page) ([]models.User, int64, error) {
	args := m.Called(ctx, query, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Follow(ctx context.Context, followerID, followingID string) error {
	args := m.Called(ctx, followerID, followingID)
	return args.Error(0)
}

func (m *MockUserRepository) Unfollow(ctx context.Context, followerID, followingID string) error {
	args := m.Called(ctx, followerID, followingID)
	return args.Error(0)
}

func (m *MockUserRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ids(args mock.Arguments) ([]string, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return m.ids(m.Called(ctx, userID))
}

func (m *MockUserRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return m.ids(m.Called(ctx, userID))
}

func (m *MockUserRepository) summaries(args mock.Arguments) ([]models.UserSummary, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserSummary), args.Error(1)
}

func (m *MockUserRepository) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return m.summaries(m.Called(ctx, userID))
}

func (m *MockUserRepository) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return m.summaries(m.Called(ctx, userID))
}

// MockNFTRepository is a mock implementation of repositories.NFTRepository
type MockNFTRepository struct {
	mock.Mock
}

func (m *MockNFTRepository) Create(ctx context.Context, nft *models.NFT) error {
	args := m.Called(ctx, nft)
	return args.Error(0)
}

func (m *MockNFTRepository) GetByID(ctx context.Context, id string) (*models.NFT, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NFT), args.Error(1)
}

func (m *MockNFTRepository) List(ctx context.Context, filter repositories.NFTFilter, sort repositories.Sort, page repositories.Page) ([]models.NFT, int64, error) {
	args := m.Called(ctx, filter, sort, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.NFT), args.Get(1).(int64), args.Error(2)
}

func (m *MockNFTRepository) UpdateFields(ctx context.Context, nft *models.NFT, fields []string) error {
	args := m.Called(ctx, nft, fields)
	return args.Error(0)
}

func (m *MockNFTRepository) SetListing(ctx context.Context, id string, listed bool, price *float64) error {
	args := m.Called(ctx, id, listed, price)
	return args.Error(0)
}

func (m *MockNFTRepository) IncrementViews(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNFTRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNFTRepository) ToggleLike(ctx context.Context, nftID, userID string) (bool, int64, error) {
	args := m.Called(ctx, nftID, userID)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockNFTRepository) Transfer(ctx context.Context, cmd repositories.TransferCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockNFTRepository) Stats(ctx context.Context) (models.MarketStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.MarketStats), args.Error(1)
}

func (m *MockNFTRepository) RecentSales(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockNFTRepository) Trending(ctx context.Context, limit int) ([]models.NFT, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NFT), args.Error(1)
}

func (m *MockNFTRepository) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CategoryCount), args.Error(1)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, eventType string, payload map[string]interface{}) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

// memoryCache is an in-process services.Cache that round-trips values
// through JSON like the Redis cache does.
type memoryCache struct {
	items   map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deletes++
	return nil
}
