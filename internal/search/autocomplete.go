package search

import (
	"context"
	"strings"

	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// Suggestion types
const (
	SuggestionAddress = "address"
	SuggestionCity    = "city"
	SuggestionZipcode = "zipcode"
)

const (
	minPrefixLen       = 2
	DefaultSuggestions = 10
	MaxSuggestions     = 20
)

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	Display    string `json:"display"`
	PropertyID string `json:"propertyId,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	ZipCode    string `json:"zipCode,omitempty"`
	Count      int64  `json:"count,omitempty"`
}

// Autocompleter suggests addresses, cities and zipcodes for a prefix.
type Autocompleter struct {
	db *gorm.DB
}

// NewAutocompleter creates an autocompleter
func NewAutocompleter(db *gorm.DB) *Autocompleter {
	return &Autocompleter{db: db}
}

// Suggest returns up to limit suggestions, addresses first, then cities,
// then zipcodes. Prefixes shorter than two characters match nothing.
func (a *Autocompleter) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	suggestions := []Suggestion{}
	if len([]rune(prefix)) < minPrefixLen {
		return suggestions, nil
	}
	limit = clampLimit(limit)

	addresses, err := a.addresses(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, addresses...)

	if len(suggestions) < limit {
		cities, err := a.cities(ctx, prefix, limit-len(suggestions))
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, cities...)
	}

	if len(suggestions) < limit {
		zips, err := a.zipcodes(ctx, prefix, limit-len(suggestions))
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, zips...)
	}

	return suggestions, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSuggestions
	case limit > MaxSuggestions:
		return MaxSuggestions
	default:
		return limit
	}
}

func (a *Autocompleter) addresses(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	var rows []models.Property
	err := whereStartsWith(a.db.WithContext(ctx).Model(&models.Property{}), "unparsed_address", prefix).
		Select("id", "unparsed_address", "city", "state_or_province", "postal_code").
		Order("unparsed_address ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(rows))
	for _, p := range rows {
		address := deref(p.UnparsedAddress)
		out = append(out, Suggestion{
			Type:       SuggestionAddress,
			Value:      address,
			Display:    address,
			PropertyID: p.ID,
			City:       deref(p.City),
			State:      deref(p.StateOrProvince),
			ZipCode:    deref(p.PostalCode),
		})
	}
	return out, nil
}

func (a *Autocompleter) cities(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	var rows []struct {
		CityName     string
		StateName    *string
		ListingCount int64
	}
	err := whereStartsWith(a.db.WithContext(ctx).Model(&models.Property{}), "city", prefix).
		Select("MIN(city) AS city_name, MIN(state_or_province) AS state_name, COUNT(*) AS listing_count").
		Group("LOWER(city), LOWER(state_or_province)").
		Order("listing_count DESC, city_name ASC, state_name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(rows))
	for _, r := range rows {
		state := deref(r.StateName)
		display := r.CityName
		if state != "" {
			display += ", " + state
		}
		out = append(out, Suggestion{
			Type:    SuggestionCity,
			Value:   r.CityName,
			Display: display,
			City:    r.CityName,
			State:   state,
			Count:   r.ListingCount,
		})
	}
	return out, nil
}

func (a *Autocompleter) zipcodes(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	var rows []struct {
		PostalCode   string
		ListingCount int64
	}
	err := whereStartsWith(a.db.WithContext(ctx).Model(&models.Property{}), "postal_code", prefix).
		Select("postal_code, COUNT(*) AS listing_count").
		Group("postal_code").
		Order("listing_count DESC, postal_code ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, Suggestion{
			Type:    SuggestionZipcode,
			Value:   r.PostalCode,
			Display: r.PostalCode,
			ZipCode: r.PostalCode,
			Count:   r.ListingCount,
		})
	}
	return out, nil
}
