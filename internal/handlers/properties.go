package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"mls-property-api/internal/models"
	"mls-property-api/internal/search"

	"github.com/gin-gonic/gin"
)

// PropertyReader loads single listings.
type PropertyReader interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetMedia(ctx context.Context, propertyID string) ([]models.PropertyMedia, error)
	GetMetadata(ctx context.Context, key string) (string, bool, error)
}

// Searcher runs filtered listing searches.
type Searcher interface {
	Search(ctx context.Context, c search.Criteria) (*search.Result, error)
}

// HistoryReader lists detected listing changes.
type HistoryReader interface {
	GetPropertyHistory(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error)
	GetRecentChanges(ctx context.Context, limit int) ([]models.PropertyChange, error)
}

// PropertyHandler serves listing search and detail.
type PropertyHandler struct {
	store    PropertyReader
	searcher Searcher
	history  HistoryReader
}

// NewPropertyHandler creates a property handler. history may be nil.
func NewPropertyHandler(store PropertyReader, searcher Searcher, history HistoryReader) *PropertyHandler {
	return &PropertyHandler{store: store, searcher: searcher, history: history}
}

// PropertySummary is a search hit with its gateway image URL.
type PropertySummary struct {
	models.Property
	ImageURL string `json:"imageUrl,omitempty"`
}

// SearchResponse is the paginated search payload.
type SearchResponse struct {
	Properties []PropertySummary `json:"properties"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	HasMore    bool              `json:"hasMore"`
	TotalPages int               `json:"totalPages"`
}

// ImageView is one ordered photo in a detail response.
type ImageView struct {
	Order       int    `json:"order"`
	URL         string `json:"url"`
	IsPreferred bool   `json:"isPreferred"`
	Stored      bool   `json:"stored"`
	Width       *int   `json:"width,omitempty"`
	Height      *int   `json:"height,omitempty"`
	Category    string `json:"category,omitempty"`
}

// PropertyDetail is a listing with its ordered photos.
type PropertyDetail struct {
	*models.Property
	Images          []ImageView `json:"images"`
	LastPopulateRun string      `json:"lastPopulateRun,omitempty"`
}

// Search handles GET /api/properties
func (h *PropertyHandler) Search(c *gin.Context) {
	start := time.Now()

	criteria, err := criteriaFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SearchResponse{
		Properties: make([]PropertySummary, 0, len(result.Items)),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		HasMore:    result.HasMore,
		TotalPages: result.TotalPages,
	}
	for _, p := range result.Items {
		summary := PropertySummary{Property: p}
		if p.PrimaryImageOrder != nil {
			summary.ImageURL = imagePath(p.ID, *p.PrimaryImageOrder)
		}
		resp.Properties = append(resp.Properties, summary)
	}

	log.Printf("[Search API] duration_ms=%d total=%d page=%d sort=%s",
		time.Since(start).Milliseconds(), result.Total, result.Page, result.SortBy)
	c.JSON(http.StatusOK, resp)
}

func criteriaFromQuery(c *gin.Context) (search.Criteria, error) {
	criteria := search.Criteria{
		Address:   c.Query("address"),
		City:      c.Query("city"),
		State:     c.Query("state"),
		Zipcode:   c.Query("zipcode"),
		Statuses:  queryList(c, "status"),
		HomeTypes: queryList(c, "home_type"),
		SortBy:    strings.TrimSpace(c.Query("sort_by")),
	}

	var err error
	if criteria.MinPrice, err = queryInt(c, "min_price"); err != nil {
		return criteria, err
	}
	if criteria.MaxPrice, err = queryInt(c, "max_price"); err != nil {
		return criteria, err
	}
	if criteria.Bedrooms, err = queryInt(c, "bedrooms"); err != nil {
		return criteria, err
	}
	if criteria.Bathrooms, err = queryInt(c, "bathrooms"); err != nil {
		return criteria, err
	}
	if criteria.Page, err = queryIntDefault(c, "page", 1); err != nil {
		return criteria, err
	}
	if criteria.PageSize, err = queryIntDefault(c, "page_size", search.DefaultPageSize); err != nil {
		return criteria, err
	}
	if criteria.SortBy == "" {
		criteria.SortBy = search.DefaultSort
	}
	// Defaults are applied above only for absent parameters; an explicit
	// page=0 or page_size=0 is rejected here.
	return criteria, criteria.Validate()
}

// Get handles GET /api/properties/:id
func (h *PropertyHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	property, err := h.store.GetProperty(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	media, err := h.store.GetMedia(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	detail := PropertyDetail{Property: property, Images: make([]ImageView, 0, len(media))}
	for _, m := range media {
		view := ImageView{
			Order:       m.Order,
			URL:         imagePath(id, m.Order),
			IsPreferred: m.IsPreferred,
			Stored:      m.IsStored(),
			Width:       m.ImageWidth,
			Height:      m.ImageHeight,
		}
		if view.Stored {
			view.URL = *m.StorageURL
		}
		if m.MediaCategory != nil {
			view.Category = *m.MediaCategory
		}
		detail.Images = append(detail.Images, view)
	}

	if lastRun, ok, err := h.store.GetMetadata(ctx, models.MetadataLastPopulateRun); err != nil {
		log.Printf("[API] failed to read last populate run: %v", err)
	} else if ok {
		detail.LastPopulateRun = lastRun
	}

	c.JSON(http.StatusOK, detail)
}

// History handles GET /api/properties/:id/history
func (h *PropertyHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not available"})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.store.GetProperty(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	limit, err := queryIntDefault(c, "limit", 30)
	if err != nil {
		respondError(c, err)
		return
	}

	changes, err := h.history.GetPropertyHistory(ctx, id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": id,
		"changes":     changes,
		"count":       len(changes),
	})
}
