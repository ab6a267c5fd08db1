package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/images"

	"github.com/gin-gonic/gin"
)

// ImageGateway resolves and proxies listing photos.
type ImageGateway interface {
	Resolve(ctx context.Context, propertyID string, index int) (*images.Resolution, error)
	Proxy(ctx context.Context, w http.ResponseWriter, sourceURL string) error
}

// ImageProcessor stores optimized copies of a property's photos.
type ImageProcessor interface {
	ProcessProperty(ctx context.Context, propertyID string, force bool) (*images.ProcessResult, error)
}

// ImageHandler serves photos and triggers per-property processing.
type ImageHandler struct {
	gateway   ImageGateway
	processor ImageProcessor
}

// NewImageHandler creates an image handler. processor may be nil when
// object storage is not wired into this process.
func NewImageHandler(gateway ImageGateway, processor ImageProcessor) *ImageHandler {
	return &ImageHandler{gateway: gateway, processor: processor}
}

// Serve handles GET /api/images/:propertyId/:index
func (h *ImageHandler) Serve(c *gin.Context) {
	propertyID := c.Param("propertyId")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respondError(c, errs.Invalid("index", "must be a non-negative integer"))
		return
	}

	res, err := h.gateway.Resolve(c.Request.Context(), propertyID, index)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.RedirectURL != "" {
		c.Redirect(http.StatusFound, res.RedirectURL)
		return
	}

	if err := h.gateway.Proxy(c.Request.Context(), c.Writer, res.SourceURL); err != nil {
		log.Printf("[Gateway] proxy %s #%d failed: %v", propertyID, index, err)
		respondError(c, err)
	}
}

// Process handles POST /api/properties/:id/process-images?force=
func (h *ImageHandler) Process(c *gin.Context) {
	if h.processor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image processing is not configured"})
		return
	}
	force, err := queryBool(c, "force", false)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.processor.ProcessProperty(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
