// Package dbtest provides an in-memory Property Store for tests.
package dbtest

import (
	"fmt"
	"testing"

	"mls-property-api/internal/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewStore returns a migrated store backed by a private in-memory SQLite
// database. The database is dropped when the test ends.
func NewStore(t testing.TB) *database.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite allows one writer; a single connection serializes the
	// concurrent workers in ingestion and migration tests.
	sqlDB.SetMaxOpenConns(1)

	store := database.NewStoreFromDB(db)
	require.NoError(t, store.InitSchema())

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
