package models

import (
	"time"

	"gorm.io/gorm"
)

// Category values accepted for an NFT.
const (
	CategoryArt          = "Art"
	CategoryMusic        = "Music"
	CategoryGaming       = "Gaming"
	CategorySports       = "Sports"
	CategoryCollectibles = "Collectibles"
	CategoryPhotography  = "Photography"
	CategoryOther        = "Other"
)

// Categories lists every valid category in display order.
var Categories = []string{
	CategoryArt,
	CategoryMusic,
	CategoryGaming,
	CategorySports,
	CategoryCollectibles,
	CategoryPhotography,
	CategoryOther,
}

// IsValidCategory reports whether c is one of Categories.
func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// DefaultBlockchain is recorded when the creator does not name one.
const DefaultBlockchain = "Ethereum"

// Attribute is a single trait of an NFT.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NFT represents a minted token record in the marketplace.
type NFT struct {
	ID                 string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name               string         `json:"name" gorm:"type:varchar(100);not null"`
	Description        string         `json:"description" gorm:"type:varchar(1000);not null"`
	Image              string         `json:"image" gorm:"type:varchar(500);not null"`
	TokenID            string         `json:"tokenId" gorm:"uniqueIndex;type:varchar(64);not null"`
	ContractAddress    string         `json:"contractAddress" gorm:"type:varchar(42);not null"`
	CreatorID          string         `json:"creatorId" gorm:"index;type:varchar(36);not null"`
	Creator            *UserSummary   `json:"creator,omitempty" gorm:"foreignKey:CreatorID;-:migration"`
	OwnerID            string         `json:"ownerId" gorm:"index;type:varchar(36);not null"`
	Owner              *UserSummary   `json:"owner,omitempty" gorm:"foreignKey:OwnerID;-:migration"`
	Price              float64        `json:"price" gorm:"index:idx_nfts_listed_price,priority:2;not null;default:0"`
	IsListed           bool           `json:"isListed" gorm:"index:idx_nfts_listed_price,priority:1;not null;default:false"`
	Category           string         `json:"category" gorm:"index;type:varchar(20);not null"`
	Attributes         []Attribute    `json:"attributes" gorm:"serializer:json;type:text"`
	Tags               []string       `json:"tags" gorm:"serializer:json;type:text"`
	Likes              []Like         `json:"-" gorm:"foreignKey:NFTID"`
	LikedBy            []string       `json:"likes" gorm:"-"`
	LikeCount          int            `json:"likeCount" gorm:"-"`
	Views              int64          `json:"views" gorm:"not null;default:0"`
	Royalty            float64        `json:"royalty" gorm:"not null;default:0"`
	Blockchain         string         `json:"blockchain" gorm:"type:varchar(50)"`
	Metadata           map[string]any `json:"metadata" gorm:"serializer:json;type:text"`
	TransactionHistory []Transaction  `json:"transactionHistory" gorm:"foreignKey:NFTID"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// AfterFind derives the public like fields from the preloaded like rows.
func (n *NFT) AfterFind(tx *gorm.DB) error {
	n.LikedBy = make([]string, 0, len(n.Likes))
	for _, l := range n.Likes {
		n.LikedBy = append(n.LikedBy, l.UserID)
	}
	n.LikeCount = len(n.LikedBy)
	return nil
}

// IsLikedBy reports whether userID is among the likers.
func (n *NFT) IsLikedBy(userID string) bool {
	for _, id := range n.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Like records that a user liked an NFT.
type Like struct {
	NFTID     string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time
}

// TableName keeps the join table name explicit.
func (Like) TableName() string {
	return "nft_likes"
}

// Tag is one searchable tag of an NFT. NFT.Tags keeps the ordered list
// for display; these rows hold the same values as plain text for search.
type Tag struct {
	NFTID string `gorm:"primaryKey;type:varchar(36)"`
	Tag   string `gorm:"primaryKey;type:varchar(255)"`
}

// TableName keeps the tag table name explicit.
func (Tag) TableName() string {
	return "nft_tags"
}

// CategoryCount is one row of the listed-by-category aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// MarketStats summarizes the catalog.
type MarketStats struct {
	TotalNFTs   int64   `json:"totalNFTs"`
	ListedNFTs  int64   `json:"listedNFTs"`
	TotalUsers  int64   `json:"totalUsers"`
	TotalVolume float64 `json:"totalVolume"`
}
