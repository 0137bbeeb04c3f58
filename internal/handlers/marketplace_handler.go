package handlers

import (
	"nftmarket/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MarketplaceHandler handles HTTP requests for purchases and marketplace
// aggregates.
type MarketplaceHandler struct {
	logs    *zap.SugaredLogger
	service *services.MarketplaceService
}

// NewMarketplaceHandler creates a new MarketplaceHandler.
func NewMarketplaceHandler(logger *zap.SugaredLogger, service *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{
		logs:    logger,
		service: service,
	}
}

// RegisterRoutes registers the marketplace routes.
func (h *MarketplaceHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	marketRoutes := router.Group("/marketplace")
	marketRoutes.Post("/buy/:id", auth, h.HandleBuy)
	marketRoutes.Get("/stats", h.HandleStats)
	marketRoutes.Get("/trending", h.HandleTrending)
	marketRoutes.Get("/categories", h.HandleCategories)
}

// HandleBuy purchases a listed NFT for the caller.
func (h *MarketplaceHandler) HandleBuy(c *fiber.Ctx) error {
	result, err := h.service.Purchase(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{
		"message":         "NFT purchased successfully",
		"nft":             result.NFT,
		"transactionHash": result.TransactionHash,
	})
}

// HandleStats returns the marketplace counters and recent sales.
func (h *MarketplaceHandler) HandleStats(c *fiber.Ctx) error {
	overview, err := h.service.Stats(c.UserContext())
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(overview)
}

// HandleTrending returns the most viewed listed NFTs.
func (h *MarketplaceHandler) HandleTrending(c *fiber.Ctx) error {
	nfts, err := h.service.Trending(c.UserContext())
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"trendingNFTs": nfts})
}

// HandleCategories returns the listed NFT count of each category.
func (h *MarketplaceHandler) HandleCategories(c *fiber.Ctx) error {
	counts, err := h.service.CategoryCounts(c.UserContext())
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"categories": counts})
}
