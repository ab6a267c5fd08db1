package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mls-property-api/internal/database/dbtest"
	"mls-property-api/internal/errs"
	"mls-property-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func listing(id string, price int) *models.Property {
	return &models.Property{
		ID:              id,
		ListingID:       id,
		City:            strPtr("Seattle"),
		StateOrProvince: strPtr("WA"),
		UnparsedAddress: strPtr("100 Pine St, Seattle, WA 98101"),
		ListPrice:       intPtr(price),
	}
}

func photos(n int) []models.PropertyMedia {
	media := make([]models.PropertyMedia, n)
	for i := range media {
		media[i] = models.PropertyMedia{
			Order:       i,
			SourceURL:   "https://media.example.com/" + string(rune('a'+i)) + ".jpg",
			IsPreferred: i == 0,
		}
	}
	return media
}

func TestUpsertListingCreatesThenUpdates(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	out, err := store.UpsertListing(ctx, listing("NW1", 500000), photos(2))
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Nil(t, out.Previous)

	first, err := store.GetProperty(ctx, "NW1")
	require.NoError(t, err)

	out, err = store.UpsertListing(ctx, listing("NW1", 475000), photos(2))
	require.NoError(t, err)
	assert.False(t, out.Created)
	require.NotNil(t, out.Previous)
	assert.Equal(t, 500000, *out.Previous.ListPrice)

	got, err := store.GetProperty(ctx, "NW1")
	require.NoError(t, err)
	assert.Equal(t, 475000, *got.ListPrice)
	assert.Equal(t, first.CreatedAt.Unix(), got.CreatedAt.Unix())

	count, err := store.CountProperties(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	media, err := store.GetMedia(ctx, "NW1")
	require.NoError(t, err)
	require.Len(t, media, 2)
	assert.Equal(t, "NW1_0", media[0].ID)
	assert.Equal(t, "NW1_1", media[1].ID)
}

func TestUpsertListingPreservesStoredImages(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, err := store.UpsertListing(ctx, listing("NW2", 300000), photos(2))
	require.NoError(t, err)

	storedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateMediaStorage(ctx, "NW2_0", models.StorageInfo{
		Key:         "properties/NW2/0.webp",
		URL:         "https://cdn.example.com/properties/NW2/0.webp",
		StoredAt:    storedAt,
		FileSize:    1234,
		ContentType: "image/webp",
	}))

	// Re-ingest with a new source URL and the preferred flag moved.
	media := photos(2)
	media[0].SourceURL = "https://media.example.com/new.jpg"
	media[0].IsPreferred = false
	media[1].IsPreferred = true
	_, err = store.UpsertListing(ctx, listing("NW2", 300000), media)
	require.NoError(t, err)

	got, err := store.GetMediaByOrder(ctx, "NW2", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/new.jpg", got.SourceURL)
	assert.False(t, got.IsPreferred)
	require.NotNil(t, got.StorageURL)
	assert.Equal(t, "https://cdn.example.com/properties/NW2/0.webp", *got.StorageURL)
	require.NotNil(t, got.FileSize)
	assert.EqualValues(t, 1234, *got.FileSize)
	assert.NotNil(t, got.StoredAt)

	second, err := store.GetMediaByOrder(ctx, "NW2", 1)
	require.NoError(t, err)
	assert.True(t, second.IsPreferred)
}

func TestUpsertListingDropsPreferredFromVanishedMedia(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	media := photos(3)
	media[0].IsPreferred = false
	media[2].IsPreferred = true
	_, err := store.UpsertListing(ctx, listing("NW3", 1), media)
	require.NoError(t, err)

	_, err = store.UpsertListing(ctx, listing("NW3", 1), photos(2))
	require.NoError(t, err)

	all, err := store.GetMedia(ctx, "NW3")
	require.NoError(t, err)
	require.Len(t, all, 3, "media the feed stopped listing is kept")

	preferred := 0
	for _, m := range all {
		if m.IsPreferred {
			preferred++
			assert.Equal(t, 0, m.Order)
		}
	}
	assert.Equal(t, 1, preferred)
}

func TestUpsertListingWithoutMediaKeepsExisting(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, err := store.UpsertListing(ctx, listing("NW4", 1), photos(2))
	require.NoError(t, err)
	_, err = store.UpsertListing(ctx, listing("NW4", 2), nil)
	require.NoError(t, err)

	media, err := store.GetMedia(ctx, "NW4")
	require.NoError(t, err)
	assert.Len(t, media, 2)
}

func TestUpsertListingRequiresID(t *testing.T) {
	store := dbtest.NewStore(t)
	_, err := store.UpsertListing(context.Background(), &models.Property{}, nil)
	assert.Error(t, err)
}

func TestNotFound(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, err := store.GetProperty(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = store.GetMediaByOrder(ctx, "missing", 0)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	err = store.UpdateMediaStorage(ctx, "missing_0", models.StorageInfo{Key: "k"})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestListPropertyIDsKeyset(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	for _, id := range []string{"C", "A", "E", "B", "D"} {
		_, err := store.UpsertListing(ctx, listing(id, 1), nil)
		require.NoError(t, err)
	}

	page, err := store.ListPropertyIDs(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, page)

	page, err = store.ListPropertyIDs(ctx, "B", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, page)

	page, err = store.ListPropertyIDs(ctx, "D", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"E"}, page)

	rows, err := store.ListProperties(ctx, "E", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMetadata(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, ok, err := store.GetMetadata(ctx, models.MetadataLastPopulateRun)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetMetadata(ctx, models.MetadataLastPopulateRun, "2026-01-01T00:00:00Z"))
	require.NoError(t, store.SetMetadata(ctx, models.MetadataLastPopulateRun, "2026-01-02T00:00:00Z"))

	value, ok, err := store.GetMetadata(ctx, models.MetadataLastPopulateRun)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-01-02T00:00:00Z", value)
}

func TestStats(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	empty, err := store.GetMediaStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, empty.Total)

	p := listing("NW5", 1)
	p.Status = strPtr(models.StatusForSale)
	_, err = store.UpsertListing(ctx, p, photos(3))
	require.NoError(t, err)
	_, err = store.UpsertListing(ctx, listing("NW6", 1), nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateMediaStorage(ctx, "NW5_1", models.StorageInfo{
		Key: "properties/NW5/1.webp", URL: "https://cdn/x", StoredAt: time.Now(), FileSize: 2048, ContentType: "image/webp",
	}))

	stats, err := store.GetMediaStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.Stored)
	assert.EqualValues(t, 2, stats.Pending)

	byStatus, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, byStatus[models.StatusForSale])
	assert.EqualValues(t, 1, byStatus["unknown"])
}
