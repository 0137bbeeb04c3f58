package handlers

import (
	"nftmarket/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for public profiles and the follow
// graph.
type UserHandler struct {
	logs    *zap.SugaredLogger
	social  *services.SocialService
	catalog *services.NFTService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(logger *zap.SugaredLogger, social *services.SocialService, catalog *services.NFTService) *UserHandler {
	return &UserHandler{
		logs:    logger,
		social:  social,
		catalog: catalog,
	}
}

// RegisterRoutes registers the user routes. /search is registered before
// /:id so it is not captured as an id.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/search", h.HandleSearch)
	userRoutes.Get("/:id", h.HandleGetProfile)
	userRoutes.Get("/:id/nfts", h.HandleUserNFTs)
	userRoutes.Post("/:id/follow", auth, h.HandleFollow)
	userRoutes.Post("/:id/unfollow", auth, h.HandleUnfollow)
	userRoutes.Get("/:id/followers", h.HandleFollowers)
	userRoutes.Get("/:id/following", h.HandleFollowing)
}

// HandleGetProfile returns a public profile.
func (h *UserHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.social.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// HandleUserNFTs lists the NFTs a user owns, created or has listed.
func (h *UserHandler) HandleUserNFTs(c *fiber.Ctx) error {
	page, limit := paging(c)
	result, err := h.catalog.ListByUser(c.UserContext(), c.Params("id"), c.Query("type"), page, limit)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(result)
}

// HandleFollow makes the caller follow the user.
func (h *UserHandler) HandleFollow(c *fiber.Ctx) error {
	if err := h.social.Follow(c.UserContext(), currentUserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"message": "User followed successfully"})
}

// HandleUnfollow removes the caller's follow.
func (h *UserHandler) HandleUnfollow(c *fiber.Ctx) error {
	if err := h.social.Unfollow(c.UserContext(), currentUserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"message": "User unfollowed successfully"})
}

// HandleFollowers lists the users following the user.
func (h *UserHandler) HandleFollowers(c *fiber.Ctx) error {
	followers, err := h.social.Followers(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"followers": followers})
}

// HandleFollowing lists the users the user follows.
func (h *UserHandler) HandleFollowing(c *fiber.Ctx) error {
	following, err := h.social.Following(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// HandleSearch searches users by username and bio.
func (h *UserHandler) HandleSearch(c *fiber.Ctx) error {
	page, limit := paging(c)
	result, err := h.social.SearchUsers(c.UserContext(), c.Query("q"), page, limit)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(result)
}
