package search_test

import (
	"context"
	"fmt"
	"testing"

	"mls-property-api/internal/database/dbtest"
	"mls-property-api/internal/models"
	"mls-property-api/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestOrdersAddressCityZipcode(t *testing.T) {
	store := dbtest.NewStore(t)
	seed(t, store,
		&models.Property{ID: "A", UnparsedAddress: strPtr("1 Main St, Seattle, WA 98101"), City: strPtr("Seattle"), StateOrProvince: strPtr("WA"), PostalCode: strPtr("98101")},
		&models.Property{ID: "B", UnparsedAddress: strPtr("2 Main St, Seattle, WA 98101"), City: strPtr("Seattle"), StateOrProvince: strPtr("WA"), PostalCode: strPtr("98101")},
		&models.Property{ID: "C", UnparsedAddress: strPtr("3 Oak Ave, SeaTac, WA 98188"), City: strPtr("Sea-Tac"), StateOrProvince: strPtr("WA"), PostalCode: strPtr("98188")},
		&models.Property{ID: "D", UnparsedAddress: strPtr("Seaview Ln, Kent, WA 98032"), City: strPtr("Kent"), StateOrProvince: strPtr("WA"), PostalCode: strPtr("98032")},
	)
	ac := search.NewAutocompleter(store.DB())

	got, err := ac.Suggest(context.Background(), "Sea", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, search.SuggestionAddress, got[0].Type)
	assert.Equal(t, "D", got[0].PropertyID)

	assert.Equal(t, search.SuggestionCity, got[1].Type)
	assert.Equal(t, "Seattle", got[1].Value)
	assert.Equal(t, "Seattle, WA", got[1].Display)
	assert.EqualValues(t, 2, got[1].Count)

	assert.Equal(t, search.SuggestionCity, got[2].Type)
	assert.Equal(t, "Sea-Tac", got[2].Value)
}

func TestSuggestZipcodes(t *testing.T) {
	store := dbtest.NewStore(t)
	seed(t, store,
		&models.Property{ID: "A", City: strPtr("Seattle"), PostalCode: strPtr("98101")},
		&models.Property{ID: "B", City: strPtr("Seattle"), PostalCode: strPtr("98102")},
		&models.Property{ID: "C", City: strPtr("Seattle"), PostalCode: strPtr("98102")},
	)

	got, err := search.NewAutocompleter(store.DB()).Suggest(context.Background(), "981", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "98102", got[0].ZipCode)
	assert.EqualValues(t, 2, got[0].Count)
	assert.Equal(t, "98101", got[1].ZipCode)
}

func TestSuggestShortPrefixIsEmpty(t *testing.T) {
	store := dbtest.NewStore(t)
	seed(t, store, &models.Property{ID: "A", City: strPtr("Seattle")})
	ac := search.NewAutocompleter(store.DB())

	for _, q := range []string{"", "S", "  S  "} {
		got, err := ac.Suggest(context.Background(), q, 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestSuggestHonorsLimit(t *testing.T) {
	store := dbtest.NewStore(t)
	for i := 0; i < 30; i++ {
		seed(t, store, &models.Property{
			ID:              fmt.Sprintf("P%02d", i),
			UnparsedAddress: strPtr(fmt.Sprintf("Seward Park %02d", i)),
			City:            strPtr("Seattle"),
		})
	}
	ac := search.NewAutocompleter(store.DB())

	got, err := ac.Suggest(context.Background(), "se", 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = ac.Suggest(context.Background(), "se", 500)
	require.NoError(t, err)
	assert.Len(t, got, search.MaxSuggestions)

	again, err := ac.Suggest(context.Background(), "se", 500)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}
