package handlers

import (
	"context"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MaxImageSize is the largest image accepted by the upload endpoint.
const MaxImageSize = 10 << 20

// ImageStore persists an uploaded image and returns the URL it is served at.
type ImageStore interface {
	PutImage(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}

// UploadHandler accepts NFT artwork uploads.
type UploadHandler struct {
	logs  *zap.SugaredLogger
	store ImageStore
}

// NewUploadHandler creates a new UploadHandler. A nil store disables uploads.
func NewUploadHandler(logger *zap.SugaredLogger, store ImageStore) *UploadHandler {
	return &UploadHandler{logs: logger, store: store}
}

// RegisterRoutes registers the upload route behind auth.
func (h *UploadHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/uploads", auth, h.HandleUpload)
}

// HandleUpload stores the multipart "image" field and returns its URL.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Image uploads are not configured",
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Image file is required",
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Only image files are allowed",
		})
	}
	if file.Size > MaxImageSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Image must be 10MB or smaller",
		})
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, h.logs, err)
	}
	defer src.Close()

	url, err := h.store.PutImage(c.UserContext(), file.Filename, contentType, src, file.Size)
	if err != nil {
		return respondError(c, h.logs, err)
	}

	h.logs.Infow("image uploaded", "user_id", currentUserID(c), "url", url)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Image uploaded successfully",
		"url":     url,
	})
}
