package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"mls-property-api/internal/models"
	"mls-property-api/internal/search"

	"github.com/gin-gonic/gin"
)

const reindexBatchSize = 500

// KeywordIndex is the optional keyword mirror.
type KeywordIndex interface {
	KeywordSearch(req search.KeywordRequest) (*search.KeywordResult, error)
	IndexProperties(properties []models.Property) error
}

// PropertyLister pages through every stored listing.
type PropertyLister interface {
	ListProperties(ctx context.Context, afterID string, limit int) ([]models.Property, error)
}

// KeywordHandler serves the keyword mirror.
type KeywordHandler struct {
	index KeywordIndex
	store PropertyLister
}

// NewKeywordHandler creates a keyword handler. index may be nil when the
// mirror is not configured.
func NewKeywordHandler(index KeywordIndex, store PropertyLister) *KeywordHandler {
	return &KeywordHandler{index: index, store: store}
}

// Search handles GET /api/search?q=&limit=&offset=&city=&status=&home_type=&sort_by=
func (h *KeywordHandler) Search(c *gin.Context) {
	if h.index == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "keyword search is not configured"})
		return
	}
	start := time.Now()

	limit, err := queryIntDefault(c, "limit", 20)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryIntDefault(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	minPrice, err := queryInt(c, "min_price")
	if err != nil {
		respondError(c, err)
		return
	}
	maxPrice, err := queryInt(c, "max_price")
	if err != nil {
		respondError(c, err)
		return
	}
	minBeds, err := queryInt(c, "bedrooms")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.index.KeywordSearch(search.KeywordRequest{
		Query: c.Query("q"),
		Filter: search.KeywordFilter{
			City:      c.Query("city"),
			Statuses:  queryList(c, "status"),
			HomeTypes: queryList(c, "home_type"),
			MinPrice:  minPrice,
			MaxPrice:  maxPrice,
			MinBeds:   minBeds,
		},
		SortBy: c.Query("sort_by"),
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		log.Printf("[Search API] keyword search failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "keyword search unavailable"})
		return
	}

	log.Printf("[Search API] keyword duration_ms=%d hits=%d", time.Since(start).Milliseconds(), result.TotalHits)
	c.JSON(http.StatusOK, result)
}

// Reindex handles POST /api/admin/search/reindex
func (h *KeywordHandler) Reindex(c *gin.Context) {
	if h.index == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "keyword search is not configured"})
		return
	}
	ctx := c.Request.Context()

	indexed, cursor := 0, ""
	for {
		batch, err := h.store.ListProperties(ctx, cursor, reindexBatchSize)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(batch) == 0 {
			break
		}
		if err := h.index.IndexProperties(batch); err != nil {
			log.Printf("[Search API] reindex failed after %d documents: %v", indexed, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "keyword index unavailable", "indexed": indexed})
			return
		}
		indexed += len(batch)
		cursor = batch[len(batch)-1].ID
	}

	log.Printf("[Search API] reindexed %d properties", indexed)
	c.JSON(http.StatusOK, gin.H{"message": "reindex complete", "indexed": indexed})
}
