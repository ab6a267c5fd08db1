// Package search implements filtered listing search, autocomplete and the
// optional keyword mirror.
package search

import (
	"context"
	"strings"
	"time"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/metrics"
	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// Sort keys
const (
	SortPriceAsc    = "price_asc"
	SortPriceDesc   = "price_desc"
	SortSqftDesc    = "sqft_desc"
	SortLotSizeDesc = "lot_size_desc"
	SortBedsDesc    = "beds_desc"
	SortBathsDesc   = "baths_desc"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultSort     = SortPriceDesc
)

// Each sort is nulls-last with id as the final tie-break, so paging is stable.
var sortClauses = map[string]string{
	SortPriceAsc:    nullsLast("list_price", "ASC"),
	SortPriceDesc:   nullsLast("list_price", "DESC"),
	SortSqftDesc:    nullsLast("living_area", "DESC"),
	SortLotSizeDesc: nullsLast("COALESCE(lot_size_square_feet, lot_size_acres * 43560)", "DESC"),
	SortBedsDesc:    nullsLast("bedrooms_total", "DESC"),
	SortBathsDesc:   nullsLast("bathrooms_total_integer", "DESC"),
}

func nullsLast(expr, dir string) string {
	return "CASE WHEN " + expr + " IS NULL THEN 1 ELSE 0 END, " + expr + " " + dir + ", id ASC"
}

// Criteria are the filters, paging and sort of a property search.
type Criteria struct {
	Address   string
	City      string
	State     string
	Zipcode   string
	Statuses  []string
	HomeTypes []string
	MinPrice  *int
	MaxPrice  *int
	Bedrooms  *int
	Bathrooms *int
	Page      int
	PageSize  int
	SortBy    string
}

// Normalize fills defaults for zero-valued paging and an empty sort, then
// validates. Callers that must reject an explicit zero validate first.
func (c *Criteria) Normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.Zipcode = strings.TrimSpace(c.Zipcode)
	c.SortBy = strings.TrimSpace(c.SortBy)

	if c.Page == 0 {
		c.Page = 1
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.SortBy == "" {
		c.SortBy = DefaultSort
	}
	return c.Validate()
}

// Validate rejects malformed criteria.
func (c *Criteria) Validate() error {
	if c.Page < 1 {
		return errs.Invalid("page", "must be at least 1")
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return errs.Invalid("page_size", "must be between 1 and %d", MaxPageSize)
	}
	for field, v := range map[string]*int{
		"min_price": c.MinPrice,
		"max_price": c.MaxPrice,
		"bedrooms":  c.Bedrooms,
		"bathrooms": c.Bathrooms,
	} {
		if v != nil && *v < 0 {
			return errs.Invalid(field, "must not be negative")
		}
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return errs.Invalid("min_price", "must not exceed max_price")
	}
	if _, ok := sortClauses[c.SortBy]; !ok {
		return errs.Invalid("sort_by", "unknown sort key %q", c.SortBy)
	}
	return nil
}

// HasLocation reports whether an address, city or zipcode was given.
func (c *Criteria) HasLocation() bool {
	return c.Address != "" || c.City != "" || c.Zipcode != ""
}

// Result is one page of search results.
type Result struct {
	Items      []models.Property `json:"properties"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	HasMore    bool              `json:"hasMore"`
	TotalPages int               `json:"totalPages"`
	SortBy     string            `json:"sortBy"`
}

// Pagination derives hasMore and the page count.
func Pagination(total int64, page, pageSize int) (hasMore bool, totalPages int) {
	if pageSize <= 0 {
		return false, 0
	}
	hasMore = int64(page)*int64(pageSize) < total
	totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	return hasMore, totalPages
}

// Engine runs property searches against the store.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a search engine
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Search returns one page of matching properties. A search without an
// address, city or zipcode matches nothing.
func (e *Engine) Search(ctx context.Context, c Criteria) (*Result, error) {
	if err := c.Normalize(); err != nil {
		return nil, err
	}

	result := &Result{
		Items:    []models.Property{},
		Page:     c.Page,
		PageSize: c.PageSize,
		SortBy:   c.SortBy,
	}
	if !c.HasLocation() {
		return result, nil
	}

	start := time.Now()
	defer metrics.ObserveSince(metrics.SearchDuration, start)

	base := applyCriteria(e.db.WithContext(ctx).Model(&models.Property{}), &c).
		Session(&gorm.Session{})

	if err := base.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	if offset := int64(c.Page-1) * int64(c.PageSize); offset < result.Total {
		err := base.
			Order(sortClauses[c.SortBy]).
			Limit(c.PageSize).
			Offset(int(offset)).
			Find(&result.Items).Error
		if err != nil {
			return nil, err
		}
	}

	result.HasMore, result.TotalPages = Pagination(result.Total, c.Page, c.PageSize)
	return result, nil
}

func applyCriteria(q *gorm.DB, c *Criteria) *gorm.DB {
	q = whereContains(q, "unparsed_address", c.Address)
	q = whereContains(q, "city", c.City)
	q = whereContains(q, "state_or_province", c.State)
	q = whereContains(q, "postal_code", c.Zipcode)

	if statuses := lowerAll(c.Statuses); len(statuses) > 0 {
		q = q.Where("LOWER(status) IN ?", statuses)
	}
	if homeTypes := lowerAll(c.HomeTypes); len(homeTypes) > 0 {
		q = q.Where("LOWER(home_type) IN ?", homeTypes)
	}
	if c.MinPrice != nil {
		q = q.Where("list_price >= ?", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		q = q.Where("list_price <= ?", *c.MaxPrice)
	}
	if c.Bedrooms != nil {
		q = q.Where("bedrooms_total >= ?", *c.Bedrooms)
	}
	if c.Bathrooms != nil {
		q = q.Where("bathrooms_total_integer >= ?", *c.Bathrooms)
	}
	return q
}

// whereContains adds a case-insensitive substring match on column.
func whereContains(q *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return q
	}
	return q.Where("LOWER("+column+") LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(value))+"%")
}

// whereStartsWith adds a case-insensitive prefix match on column.
func whereStartsWith(q *gorm.DB, column, value string) *gorm.DB {
	return q.Where("LOWER("+column+") LIKE ? ESCAPE '!'", escapeLike(strings.ToLower(value))+"%")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, strings.ToLower(v))
		}
	}
	return out
}
