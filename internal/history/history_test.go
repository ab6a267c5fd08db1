package history_test

import (
	"context"
	"testing"

	"mls-property-api/internal/database/dbtest"
	"mls-property-api/internal/history"
	"mls-property-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestDetectChangesNewListing(t *testing.T) {
	next := &models.Property{ID: "NW1", ListPrice: intPtr(500000)}
	changes := history.DetectChanges(nil, next)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeTypeNew, changes[0].ChangeType)
	assert.Equal(t, "500000", changes[0].NewValue)
}

func TestDetectChangesPriceAndStatus(t *testing.T) {
	prev := &models.Property{ID: "NW1", ListPrice: intPtr(500000), Status: strPtr(models.StatusForSale), MlsStatus: strPtr("Active")}
	next := &models.Property{ID: "NW1", ListPrice: intPtr(475000), Status: strPtr(models.StatusPending), MlsStatus: strPtr("Active")}

	changes := history.DetectChanges(prev, next)
	require.Len(t, changes, 2)

	assert.Equal(t, models.ChangeTypePrice, changes[0].ChangeType)
	assert.Equal(t, "500000", changes[0].OldValue)
	assert.Equal(t, "475000", changes[0].NewValue)
	require.NotNil(t, changes[0].ChangeMagnitude)
	assert.Equal(t, -25000.0, *changes[0].ChangeMagnitude)

	assert.Equal(t, models.ChangeTypeStatus, changes[1].ChangeType)
	assert.Equal(t, models.StatusForSale, changes[1].OldValue)
	assert.Equal(t, models.StatusPending, changes[1].NewValue)
}

func TestDetectChangesUnchanged(t *testing.T) {
	p := &models.Property{ID: "NW1", ListPrice: intPtr(1), Status: strPtr(models.StatusSold)}
	assert.Empty(t, history.DetectChanges(p, p))
}

func TestRecordAndHistory(t *testing.T) {
	store := dbtest.NewStore(t)
	svc := history.NewService(store.DB())
	ctx := context.Background()

	prev := &models.Property{ID: "NW1", ListPrice: intPtr(500000)}
	next := &models.Property{ID: "NW1", ListPrice: intPtr(450000)}

	require.NoError(t, svc.Record(ctx, "run-1", history.DetectChanges(nil, prev)))
	require.NoError(t, svc.Record(ctx, "run-2", history.DetectChanges(prev, next)))
	require.NoError(t, svc.Record(ctx, "run-2", nil))

	got, err := svc.GetPropertyHistory(ctx, "NW1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ChangeTypePrice, got[0].ChangeType)
	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, models.ChangeTypeNew, got[1].ChangeType)

	recent, err := svc.GetRecentChanges(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
