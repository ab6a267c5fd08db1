package search

import (
	"fmt"
	"strings"
)

// KeywordFilter narrows keyword lookups against the mirror.
type KeywordFilter struct {
	City      string
	Statuses  []string
	HomeTypes []string
	MinPrice  *int
	MaxPrice  *int
	MinBeds   *int
}

// Build renders the filter in Meilisearch filter syntax.
func (f KeywordFilter) Build() string {
	var filters []string

	if f.City != "" {
		filters = append(filters, fmt.Sprintf("city = %s", quoteFilter(f.City)))
	}
	if group := anyOf("status", f.Statuses); group != "" {
		filters = append(filters, group)
	}
	if group := anyOf("home_type", f.HomeTypes); group != "" {
		filters = append(filters, group)
	}
	if f.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("list_price >= %d", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("list_price <= %d", *f.MaxPrice))
	}
	if f.MinBeds != nil {
		filters = append(filters, fmt.Sprintf("bedrooms >= %d", *f.MinBeds))
	}

	return strings.Join(filters, " AND ")
}

func anyOf(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, fmt.Sprintf("%s = %s", field, quoteFilter(v)))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}

// quoteFilter wraps a value in double quotes, escaping embedded quotes.
func quoteFilter(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// keywordSort maps portal sort keys onto the mirror's sortable attributes.
func keywordSort(sortBy string) string {
	switch sortBy {
	case SortPriceAsc:
		return "list_price:asc"
	case SortPriceDesc:
		return "list_price:desc"
	case SortSqftDesc:
		return "living_area:desc"
	case SortBedsDesc:
		return "bedrooms:desc"
	default:
		return ""
	}
}
