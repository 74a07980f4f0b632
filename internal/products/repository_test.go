package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return conn
}

func TestRepositoryFindByIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))

	shirt := &models.Product{Name: "Shirt", Price: decimal.RequireFromString("12.50"), HasSizes: true}
	hat := &models.Product{Name: "Hat", Price: decimal.RequireFromString("8.00")}
	require.NoError(t, repo.Create(ctx, shirt))
	require.NoError(t, repo.Create(ctx, hat))

	found, err := repo.FindByIDs(ctx, []int64{shirt.ID, hat.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, found[shirt.ID].HasSizes)
	assert.Equal(t, "8.00", found[hat.ID].Price.StringFixed(2))

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	_, err := repo.FindByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}
