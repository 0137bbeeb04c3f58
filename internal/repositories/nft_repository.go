package repositories

import (
	"context"
	"time"

	"nftmarket/internal/models"
)

// NFTFilter narrows an NFT listing. Zero values mean "no restriction".
type NFTFilter struct {
	ListedOnly bool
	Category   string
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
	OwnerID    string
	CreatorID  string
}

// Sort orders an NFT listing by one of SortableFields.
type Sort struct {
	Field string
	Desc  bool
}

// SortableFields maps the API field names onto their columns.
var SortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"price":     "price",
	"views":     "views",
	"name":      "name",
	"category":  "category",
	"royalty":   "royalty",
}

// TransferCommand is the full set of mutations applied by a sale.
type TransferCommand struct {
	NFTID           string
	SellerID        string
	BuyerID         string
	Price           float64
	TransactionHash string
	Timestamp       time.Time
}

// NFTRepository defines the interface for NFT data access.
type NFTRepository interface {
	Create(ctx context.Context, nft *models.NFT) error
	GetByID(ctx context.Context, id string) (*models.NFT, error)
	List(ctx context.Context, filter NFTFilter, sort Sort, page Page) ([]models.NFT, int64, error)
	UpdateFields(ctx context.Context, nft *models.NFT, fields []string) error
	SetListing(ctx context.Context, id string, listed bool, price *float64) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, nftID, userID string) (bool, int64, error)
	Transfer(ctx context.Context, cmd TransferCommand) error
	Stats(ctx context.Context) (models.MarketStats, error)
	RecentSales(ctx context.Context, limit int) ([]models.Transaction, error)
	Trending(ctx context.Context, limit int) ([]models.NFT, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
}
