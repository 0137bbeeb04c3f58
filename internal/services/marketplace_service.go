package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nftmarket/internal/metrics"
	"nftmarket/internal/models"
	"nftmarket/internal/repositories"
	"nftmarket/pkg/chain"

	"go.uber.org/zap"
)

const (
	trendingLimit    = 10
	recentSalesLimit = 10
)

// MarketplaceService handles purchases and marketplace aggregates.
type MarketplaceService struct {
	logs     *zap.SugaredLogger
	nftRepo  repositories.NFTRepository
	events   EventPublisher
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewMarketplaceService creates a new MarketplaceService. events and cache
// may be nil; a non-positive cacheTTL disables caching.
func NewMarketplaceService(logger *zap.SugaredLogger, nftRepo repositories.NFTRepository, events EventPublisher, cache Cache, cacheTTL time.Duration) *MarketplaceService {
	if cacheTTL <= 0 {
		cache = nil
	}
	return &MarketplaceService{
		logs:     logger,
		nftRepo:  nftRepo,
		events:   events,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// PurchaseResult is the outcome of a successful purchase.
type PurchaseResult struct {
	NFT             *models.NFT `json:"nft"`
	TransactionHash string      `json:"transactionHash"`
}

// Purchase transfers a listed NFT to buyerID at its asking price.
func (s *MarketplaceService) Purchase(ctx context.Context, nftID, buyerID string) (*PurchaseResult, error) {
	nft, err := s.nftRepo.GetByID(ctx, nftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(ErrNotFound, "NFT not found")
		}
		return nil, fmt.Errorf("failed to load nft %s: %w", nftID, err)
	}
	if !nft.IsListed {
		return nil, ErrNotListed
	}
	if nft.OwnerID == buyerID {
		return nil, ErrSelfPurchase
	}

	now := s.now()
	hash, err := chain.TransactionHash(nft.ID, nft.OwnerID, buyerID, nft.Price, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction hash: %w", err)
	}

	cmd := repositories.TransferCommand{
		NFTID:           nft.ID,
		SellerID:        nft.OwnerID,
		BuyerID:         buyerID,
		Price:           nft.Price,
		TransactionHash: hash,
		Timestamp:       now,
	}
	if err := s.nftRepo.Transfer(ctx, cmd); err != nil {
		if errors.Is(err, repositories.ErrStateChanged) {
			metrics.PurchaseConflict()
			s.logs.Infow("purchase lost to a concurrent change", "nft_id", nftID, "buyer_id", buyerID)
			return nil, ErrNotListed
		}
		return nil, fmt.Errorf("failed to complete purchase of nft %s: %w", nftID, err)
	}

	updated, err := s.nftRepo.GetByID(ctx, nftID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload nft %s: %w", nftID, err)
	}

	metrics.Purchase(cmd.Price)
	invalidateAggregates(ctx, s.logs, s.cache)
	publish(ctx, s.logs, s.events, EventNFTPurchased, map[string]interface{}{
		"nftId":           cmd.NFTID,
		"sellerId":        cmd.SellerID,
		"buyerId":         cmd.BuyerID,
		"price":           cmd.Price,
		"transactionHash": cmd.TransactionHash,
	})
	s.logs.Infow("nft purchased",
		"nft_id", cmd.NFTID,
		"seller_id", cmd.SellerID,
		"buyer_id", cmd.BuyerID,
		"price", cmd.Price,
	)
	return &PurchaseResult{NFT: updated, TransactionHash: hash}, nil
}

// MarketOverview is the marketplace statistics response.
type MarketOverview struct {
	Stats       models.MarketStats   `json:"stats"`
	RecentSales []models.Transaction `json:"recentSales"`
}

// Stats computes the catalog counters, total traded volume and the most
// recent sales.
func (s *MarketplaceService) Stats(ctx context.Context) (*MarketOverview, error) {
	var out MarketOverview
	err := s.cached(ctx, cacheKeyStats, &out, func() error {
		stats, err := s.nftRepo.Stats(ctx)
		if err != nil {
			return err
		}
		sales, err := s.nftRepo.RecentSales(ctx, recentSalesLimit)
		if err != nil {
			return err
		}
		out = MarketOverview{Stats: stats, RecentSales: sales}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace stats: %w", err)
	}
	return &out, nil
}

// Trending returns the most viewed listed NFTs.
func (s *MarketplaceService) Trending(ctx context.Context) ([]models.NFT, error) {
	var out []models.NFT
	err := s.cached(ctx, cacheKeyTrending, &out, func() error {
		nfts, err := s.nftRepo.Trending(ctx, trendingLimit)
		out = nfts
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get trending nfts: %w", err)
	}
	return out, nil
}

// CategoryCounts returns the number of listed NFTs per category.
func (s *MarketplaceService) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	var out []models.CategoryCount
	err := s.cached(ctx, cacheKeyCategories, &out, func() error {
		counts, err := s.nftRepo.CategoryCounts(ctx)
		out = counts
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get category counts: %w", err)
	}
	return out, nil
}

// cached fills dest from the cache when possible and otherwise runs
// compute, which must fill dest, and stores the result. Cache failures only
// cost a recomputation.
func (s *MarketplaceService) cached(ctx context.Context, key string, dest interface{}, compute func() error) error {
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, dest)
		if err != nil {
			s.logs.Warnw("failed to read marketplace cache", "key", key, "error", err)
		}
		if hit && err == nil {
			return nil
		}
	}

	if err := compute(); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dest, s.cacheTTL); err != nil {
			s.logs.Warnw("failed to write marketplace cache", "key", key, "error", err)
		}
	}
	return nil
}
