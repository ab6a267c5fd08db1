package search

import (
	"testing"

	"mls-property-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestKeywordFilterBuild(t *testing.T) {
	lo, hi, beds := 100, 200, 3
	f := KeywordFilter{
		City:      `Coeur d"Alene`,
		Statuses:  []string{"For Sale", " ", "Pending"},
		HomeTypes: []string{"Condo"},
		MinPrice:  &lo,
		MaxPrice:  &hi,
		MinBeds:   &beds,
	}
	assert.Equal(t,
		`city = "Coeur d\"Alene" AND (status = "For Sale" OR status = "Pending") AND home_type = "Condo" AND list_price >= 100 AND list_price <= 200 AND bedrooms >= 3`,
		f.Build())
	assert.Empty(t, KeywordFilter{}.Build())
}

func TestKeywordSort(t *testing.T) {
	assert.Equal(t, "list_price:asc", keywordSort(SortPriceAsc))
	assert.Empty(t, keywordSort(SortLotSizeDesc))
}

func TestDocumentRoundTrip(t *testing.T) {
	price, beds := 500000, 3
	city, status := "Seattle", models.StatusForSale
	p := &models.Property{ID: "NW1", ListingID: "NW1", City: &city, Status: &status, ListPrice: &price, BedroomsTotal: &beds}

	doc := NewDocument(p)
	assert.Equal(t, "Seattle", doc.Address)

	hit := map[string]interface{}{
		"id":         "NW1",
		"city":       "Seattle",
		"status":     status,
		"list_price": float64(500000),
		"bedrooms":   float64(3),
	}
	got := documentFromHit(hit)
	assert.Equal(t, "NW1", got.ID)
	assert.Equal(t, 500000, *got.ListPrice)
	assert.Equal(t, 3, *got.Bedrooms)
	assert.Nil(t, got.LivingArea)
}
