package handlers

import (
	"context"
	"net/http"

	"mls-property-api/internal/search"

	"github.com/gin-gonic/gin"
)

// Suggester completes address, city and zipcode prefixes.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]search.Suggestion, error)
}

// AutocompleteHandler serves GET /api/autocomplete
type AutocompleteHandler struct {
	suggester Suggester
}

// NewAutocompleteHandler creates an autocomplete handler
func NewAutocompleteHandler(s Suggester) *AutocompleteHandler {
	return &AutocompleteHandler{suggester: s}
}

// Suggest handles GET /api/autocomplete?q=&limit=
func (h *AutocompleteHandler) Suggest(c *gin.Context) {
	limit, err := queryIntDefault(c, "limit", 10)
	if err != nil {
		respondError(c, err)
		return
	}
	suggestions, err := h.suggester.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
