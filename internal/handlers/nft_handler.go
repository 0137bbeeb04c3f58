package handlers

import (
	"nftmarket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NFTHandler handles HTTP requests for the NFT catalog.
type NFTHandler struct {
	logs     *zap.SugaredLogger
	service  *services.NFTService
	validate *validator.Validate
}

// NewNFTHandler creates a new NFTHandler.
func NewNFTHandler(logger *zap.SugaredLogger, service *services.NFTService) *NFTHandler {
	return &NFTHandler{
		logs:     logger,
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the NFT routes. auth protects the mutating ones.
func (h *NFTHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	nftRoutes := router.Group("/nfts")
	nftRoutes.Get("/", h.HandleList)
	nftRoutes.Post("/", auth, h.HandleCreate)
	nftRoutes.Get("/:id", h.HandleGetByID)
	nftRoutes.Put("/:id", auth, h.HandleUpdate)
	nftRoutes.Delete("/:id", auth, h.HandleDelete)
	nftRoutes.Post("/:id/like", auth, h.HandleToggleLike)
	nftRoutes.Post("/:id/list", auth, h.HandleListForSale)
	nftRoutes.Post("/:id/unlist", auth, h.HandleUnlist)
}

// HandleCreate mints a new NFT owned by the caller.
func (h *NFTHandler) HandleCreate(c *fiber.Ctx) error {
	var req services.CreateNFTInput
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	nft, err := h.service.Create(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "NFT created successfully",
		"nft":     nft,
	})
}

// HandleList returns a filtered page of the catalog.
func (h *NFTHandler) HandleList(c *fiber.Ctx) error {
	minPrice, err := queryFloat(c, "minPrice")
	if err != nil {
		return respondError(c, h.logs, err)
	}
	maxPrice, err := queryFloat(c, "maxPrice")
	if err != nil {
		return respondError(c, h.logs, err)
	}
	listedOnly, err := queryBool(c, "listedOnly")
	if err != nil {
		return respondError(c, h.logs, err)
	}

	page, limit := paging(c)
	q := services.ListNFTsQuery{
		Page:       page,
		Limit:      limit,
		Category:   c.Query("category"),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		ListedOnly: listedOnly,
	}

	result, err := h.service.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(result)
}

// HandleGetByID returns one NFT and records the view.
func (h *NFTHandler) HandleGetByID(c *fiber.Ctx) error {
	nft, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"nft": nft})
}

// HandleUpdate applies an owner's edit.
func (h *NFTHandler) HandleUpdate(c *fiber.Ctx) error {
	var req services.UpdateNFTInput
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	nft, err := h.service.Update(c.UserContext(), c.Params("id"), currentUserID(c), req)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{
		"message": "NFT updated successfully",
		"nft":     nft,
	})
}

// HandleDelete removes an NFT owned by the caller.
func (h *NFTHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id"), currentUserID(c)); err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{"message": "NFT deleted successfully"})
}

// HandleToggleLike flips the caller's like.
func (h *NFTHandler) HandleToggleLike(c *fiber.Ctx) error {
	result, err := h.service.ToggleLike(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	message := "NFT unliked"
	if result.IsLiked {
		message = "NFT liked"
	}
	return c.JSON(fiber.Map{
		"message":   message,
		"isLiked":   result.IsLiked,
		"likeCount": result.LikeCount,
	})
}

// ListRequest represents the request body for listing an NFT for sale.
type ListRequest struct {
	Price *float64 `json:"price" validate:"required,gte=0"`
}

// HandleListForSale puts the caller's NFT on the market.
func (h *NFTHandler) HandleListForSale(c *fiber.Ctx) error {
	var req ListRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	nft, err := h.service.ListForSale(c.UserContext(), c.Params("id"), currentUserID(c), req.Price)
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{
		"message": "NFT listed for sale",
		"nft":     nft,
	})
}

// HandleUnlist takes the caller's NFT off the market.
func (h *NFTHandler) HandleUnlist(c *fiber.Ctx) error {
	nft, err := h.service.Unlist(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondError(c, h.logs, err)
	}
	return c.JSON(fiber.Map{
		"message": "NFT removed from sale",
		"nft":     nft,
	})
}
