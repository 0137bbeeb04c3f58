package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nftmarket/internal/metrics"
	"nftmarket/internal/models"
	"nftmarket/internal/repositories"
	"nftmarket/pkg/chain"

	"github.com/jellydator/validation"
	"go.uber.org/zap"
)

const defaultNFTPageSize = 12

// Listing types accepted by ListByUser.
const (
	UserNFTsOwned   = "owned"
	UserNFTsCreated = "created"
	UserNFTsListed  = "listed"
)

var categoryRule = func() validation.Rule {
	values := make([]interface{}, 0, len(models.Categories))
	for _, c := range models.Categories {
		values = append(values, c)
	}
	return validation.In(values...).Error("must be one of " + strings.Join(models.Categories, ", "))
}()

// NFTService handles the NFT catalog.
type NFTService struct {
	logs   *zap.SugaredLogger
	repo   repositories.NFTRepository
	events EventPublisher
	cache  Cache
	now    func() time.Time
}

// NewNFTService creates a new NFTService. events and cache may be nil.
func NewNFTService(logger *zap.SugaredLogger, repo repositories.NFTRepository, events EventPublisher, cache Cache) *NFTService {
	return &NFTService{
		logs:   logger,
		repo:   repo,
		events: events,
		cache:  cache,
		now:    time.Now,
	}
}

// CreateNFTInput carries the fields of a new NFT.
type CreateNFTInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	Price       *float64           `json:"price"`
	Category    string             `json:"category"`
	Attributes  []models.Attribute `json:"attributes"`
	Tags        []string           `json:"tags"`
	Royalty     float64            `json:"royalty"`
	Blockchain  string             `json:"blockchain"`
	Metadata    map[string]any     `json:"metadata"`
}

// Validate implements validation.Validatable.
func (in CreateNFTInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Description, validation.Required, validation.Length(1, 1000)),
		validation.Field(&in.Image, validation.Required, validation.Length(1, 500)),
		validation.Field(&in.Price, validation.NotNil, validation.Min(0.0)),
		validation.Field(&in.Category, validation.Required, categoryRule),
		validation.Field(&in.Royalty, validation.Min(0.0), validation.Max(50.0)),
		validation.Field(&in.Blockchain, validation.Length(0, 50)),
	)
}

// Create mints a new NFT record owned by its creator.
func (s *NFTService) Create(ctx context.Context, creatorID string, in CreateNFTInput) (*models.NFT, error) {
	if err := fromValidation(in.Validate()); err != nil {
		return nil, err
	}

	now := s.now()
	tokenID, err := chain.NewTokenID(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}
	contract, err := chain.NewContractAddress(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate contract address: %w", err)
	}

	nft := &models.NFT{
		Name:            in.Name,
		Description:     in.Description,
		Image:           in.Image,
		TokenID:         tokenID,
		ContractAddress: contract,
		CreatorID:       creatorID,
		OwnerID:         creatorID,
		Price:           *in.Price,
		IsListed:        false,
		Category:        in.Category,
		Attributes:      in.Attributes,
		Tags:            in.Tags,
		Royalty:         in.Royalty,
		Blockchain:      in.Blockchain,
		Metadata:        in.Metadata,
	}
	if nft.Blockchain == "" {
		nft.Blockchain = models.DefaultBlockchain
	}
	if nft.Attributes == nil {
		nft.Attributes = []models.Attribute{}
	}
	if nft.Tags == nil {
		nft.Tags = []string{}
	}
	if nft.Metadata == nil {
		nft.Metadata = map[string]any{}
	}

	if err := s.repo.Create(ctx, nft); err != nil {
		return nil, fmt.Errorf("failed to create nft: %w", err)
	}

	created, err := s.load(ctx, nft.ID)
	if err != nil {
		return nil, err
	}

	metrics.NFTMinted()
	invalidateAggregates(ctx, s.logs, s.cache)
	publish(ctx, s.logs, s.events, EventNFTCreated, map[string]interface{}{
		"nftId":     created.ID,
		"tokenId":   created.TokenID,
		"creatorId": created.CreatorID,
		"category":  created.Category,
	})
	s.logs.Infow("nft created", "nft_id", created.ID, "creator_id", creatorID)
	return created, nil
}

// ListNFTsQuery is the set of filters, sort and paging of a catalog listing.
type ListNFTsQuery struct {
	Page       int
	Limit      int
	ListedOnly *bool
	Category   string
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
	SortBy     string
	SortOrder  string
}

// NFTPage is one page of a catalog listing.
type NFTPage struct {
	NFTs       []models.NFT `json:"nfts"`
	Pagination Pagination   `json:"pagination"`
}

// List returns a filtered, sorted page of the catalog. Listed NFTs only
// unless ListedOnly is explicitly false.
func (s *NFTService) List(ctx context.Context, q ListNFTsQuery) (*NFTPage, error) {
	filter := repositories.NFTFilter{
		ListedOnly: q.ListedOnly == nil || *q.ListedOnly,
		Category:   q.Category,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Search:     strings.TrimSpace(q.Search),
	}
	sort := repositories.Sort{Field: q.SortBy, Desc: !strings.EqualFold(q.SortOrder, "asc")}
	if _, ok := repositories.SortableFields[sort.Field]; !ok {
		sort.Field = "createdAt"
	}
	return s.page(ctx, filter, sort, clampPage(q.Page, q.Limit, defaultNFTPageSize))
}

// ListByUser lists the NFTs a user owns, created, or currently has listed.
func (s *NFTService) ListByUser(ctx context.Context, userID, listingType string, page, limit int) (*NFTPage, error) {
	filter := repositories.NFTFilter{}
	switch listingType {
	case "", UserNFTsOwned:
		filter.OwnerID = userID
	case UserNFTsCreated:
		filter.CreatorID = userID
	case UserNFTsListed:
		filter.OwnerID = userID
		filter.ListedOnly = true
	default:
		return nil, invalid("type", "must be one of owned, created, listed")
	}
	return s.page(ctx, filter, repositories.Sort{Field: "createdAt", Desc: true}, clampPage(page, limit, defaultNFTPageSize))
}

func (s *NFTService) page(ctx context.Context, filter repositories.NFTFilter, sort repositories.Sort, p repositories.Page) (*NFTPage, error) {
	nfts, total, err := s.repo.List(ctx, filter, sort, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list nfts: %w", err)
	}
	return &NFTPage{NFTs: nfts, Pagination: paginate(p, total)}, nil
}

// GetByID returns an NFT and counts the read as a view. The returned view
// count includes this view.
func (s *NFTService) GetByID(ctx context.Context, id string) (*models.NFT, error) {
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		return nil, s.notFound(err, id)
	}
	return s.load(ctx, id)
}

func (s *NFTService) load(ctx context.Context, id string) (*models.NFT, error) {
	nft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.notFound(err, id)
	}
	return nft, nil
}

func (s *NFTService) notFound(err error, id string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "NFT not found")
	}
	return fmt.Errorf("failed to load nft %s: %w", id, err)
}

// loadOwned loads an NFT and checks that requesterID owns it.
func (s *NFTService) loadOwned(ctx context.Context, id, requesterID string) (*models.NFT, error) {
	nft, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if nft.OwnerID != requesterID {
		return nil, newError(ErrForbidden, "Only the owner can modify this NFT")
	}
	return nft, nil
}

// UpdateNFTInput lists the owner-editable fields. Nil fields are left
// untouched.
type UpdateNFTInput struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Price       *float64           `json:"price"`
	Category    *string            `json:"category"`
	Tags        []string           `json:"tags"`
	Attributes  []models.Attribute `json:"attributes"`
}

// Validate implements validation.Validatable.
func (in UpdateNFTInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Description, validation.NilOrNotEmpty, validation.Length(1, 1000)),
		validation.Field(&in.Price, validation.Min(0.0)),
		validation.Field(&in.Category, validation.NilOrNotEmpty, categoryRule),
	)
}

// Update applies an owner's edit.
func (s *NFTService) Update(ctx context.Context, id, requesterID string, in UpdateNFTInput) (*models.NFT, error) {
	nft, err := s.loadOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := fromValidation(in.Validate()); err != nil {
		return nil, err
	}

	var fields []string
	if in.Name != nil {
		nft.Name = *in.Name
		fields = append(fields, "name")
	}
	if in.Description != nil {
		nft.Description = *in.Description
		fields = append(fields, "description")
	}
	if in.Price != nil {
		nft.Price = *in.Price
		fields = append(fields, "price")
	}
	if in.Category != nil {
		nft.Category = *in.Category
		fields = append(fields, "category")
	}
	if in.Tags != nil {
		nft.Tags = in.Tags
		fields = append(fields, "tags")
	}
	if in.Attributes != nil {
		nft.Attributes = in.Attributes
		fields = append(fields, "attributes")
	}
	if len(fields) == 0 {
		return nft, nil
	}

	if err := s.repo.UpdateFields(ctx, nft, fields); err != nil {
		return nil, s.notFound(err, id)
	}
	invalidateAggregates(ctx, s.logs, s.cache)
	return nft, nil
}

// Delete removes an NFT owned by requesterID.
func (s *NFTService) Delete(ctx context.Context, id, requesterID string) error {
	if _, err := s.loadOwned(ctx, id, requesterID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.notFound(err, id)
	}
	invalidateAggregates(ctx, s.logs, s.cache)
	s.logs.Infow("nft deleted", "nft_id", id, "owner_id", requesterID)
	return nil
}

// LikeResult is the state of a like after a toggle.
type LikeResult struct {
	IsLiked   bool  `json:"isLiked"`
	LikeCount int64 `json:"likeCount"`
}

// ToggleLike flips userID's like on the NFT.
func (s *NFTService) ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error) {
	liked, count, err := s.repo.ToggleLike(ctx, id, userID)
	if err != nil {
		return nil, s.notFound(err, id)
	}
	return &LikeResult{IsLiked: liked, LikeCount: count}, nil
}

// ListForSale puts an NFT on the market at price.
func (s *NFTService) ListForSale(ctx context.Context, id, requesterID string, price *float64) (*models.NFT, error) {
	if _, err := s.loadOwned(ctx, id, requesterID); err != nil {
		return nil, err
	}
	if price == nil {
		return nil, invalid("price", "is required")
	}
	if *price < 0 {
		return nil, invalid("price", "must be no less than 0")
	}

	if err := s.repo.SetListing(ctx, id, true, price); err != nil {
		return nil, s.notFound(err, id)
	}
	nft, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	invalidateAggregates(ctx, s.logs, s.cache)
	publish(ctx, s.logs, s.events, EventNFTListed, map[string]interface{}{
		"nftId":   nft.ID,
		"ownerId": nft.OwnerID,
		"price":   nft.Price,
	})
	return nft, nil
}

// Unlist takes an NFT off the market. The asking price is kept.
func (s *NFTService) Unlist(ctx context.Context, id, requesterID string) (*models.NFT, error) {
	if _, err := s.loadOwned(ctx, id, requesterID); err != nil {
		return nil, err
	}
	if err := s.repo.SetListing(ctx, id, false, nil); err != nil {
		return nil, s.notFound(err, id)
	}
	nft, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	invalidateAggregates(ctx, s.logs, s.cache)
	publish(ctx, s.logs, s.events, EventNFTUnlisted, map[string]interface{}{
		"nftId":   nft.ID,
		"ownerId": nft.OwnerID,
	})
	return nft, nil
}
