package services

import (
	"context"
	"time"

	"nftmarket/internal/repositories"

	"go.uber.org/zap"
)

// Domain event types published after a successful state change.
const (
	EventNFTCreated   = "nft.created"
	EventNFTListed    = "nft.listed"
	EventNFTUnlisted  = "nft.unlisted"
	EventNFTPurchased = "nft.purchased"
	EventUserFollowed = "user.followed"
)

// EventPublisher delivers domain events to whoever listens for them.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, payload map[string]interface{}) error
}

// Cache stores aggregate results between requests.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache keys of the marketplace aggregates.
const (
	cacheKeyStats      = "market:stats"
	cacheKeyTrending   = "market:trending"
	cacheKeyCategories = "market:categories"
)

// publish sends an event without failing the caller; delivery is best effort.
func publish(ctx context.Context, logs *zap.SugaredLogger, events EventPublisher, eventType string, payload map[string]interface{}) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(ctx, eventType, payload); err != nil {
		logs.Warnw("failed to publish event", "event", eventType, "error", err)
	}
}

// invalidateAggregates drops every cached marketplace aggregate.
func invalidateAggregates(ctx context.Context, logs *zap.SugaredLogger, cache Cache) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, cacheKeyStats, cacheKeyTrending, cacheKeyCategories); err != nil {
		logs.Warnw("failed to invalidate marketplace cache", "error", err)
	}
}

// Pagination describes the page returned by a list operation.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

const maxPageSize = 100

// clampPage applies the paging defaults: page numbers start at 1 and page
// sizes are kept within [1, maxPageSize].
func clampPage(page, limit, defaultLimit int) repositories.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return repositories.Page{Number: page, Size: limit}
}

func paginate(p repositories.Page, total int64) Pagination {
	return Pagination{
		CurrentPage:  p.Number,
		TotalPages:   int((total + int64(p.Size) - 1) / int64(p.Size)),
		TotalItems:   total,
		ItemsPerPage: p.Size,
	}
}
