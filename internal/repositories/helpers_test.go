package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"nftmarket/internal/database"
	"nftmarket/internal/models"
	"nftmarket/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory SQLite database with the schema
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, repo *repositories.GORMUserRepository, username, bio string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		Bio:      bio,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

type nftSeed struct {
	name        string
	description string
	category    string
	price       float64
	listed      bool
	tags        []string
}

func seedNFT(t *testing.T, repo *repositories.GORMNFTRepository, owner *models.User, s nftSeed) *models.NFT {
	t.Helper()
	if s.category == "" {
		s.category = models.CategoryArt
	}
	if s.description == "" {
		s.description = "description of " + s.name
	}
	nft := &models.NFT{
		Name:            s.name,
		Description:     s.description,
		Image:           "https://img.example.com/" + uuid.NewString(),
		TokenID:         "NFT_" + uuid.NewString(),
		ContractAddress: "0x0000000000000000000000000000000000000001",
		CreatorID:       owner.ID,
		OwnerID:         owner.ID,
		Price:           s.price,
		IsListed:        s.listed,
		Category:        s.category,
		Tags:            s.tags,
		Attributes:      []models.Attribute{},
		Blockchain:      models.DefaultBlockchain,
		Metadata:        map[string]any{},
	}
	require.NoError(t, repo.Create(context.Background(), nft))
	// keep created_at strictly increasing for ordering assertions
	time.Sleep(2 * time.Millisecond)
	return nft
}
