package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/client"
	"charity-market/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))
	return db
}

func seedProduct(t *testing.T, repo ProductRepository, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		ID:         uuid.NewString(),
		Name:       "Beans 500g",
		Price:      decimal.RequireFromString("3.50"),
		Stock:      stock,
		SupplierID: uuid.NewString(),
		Status:     model.ProductActive,
	}
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func TestDecrementStock(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()
	product := seedProduct(t, repo, 5)

	require.NoError(t, repo.DecrementStock(ctx, nil, product.ID, 2))
	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock)

	// Draining to exactly zero is allowed.
	require.NoError(t, repo.DecrementStock(ctx, nil, product.ID, 3))
	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)
}

func TestDecrementStockRefusesToGoNegative(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()
	product := seedProduct(t, repo, 2)

	err := repo.DecrementStock(ctx, nil, product.ID, 3)
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, product.ID, insufficient.ProductID)
	assert.Equal(t, 2, insufficient.Available)

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Stock, "failed decrement leaves stock untouched")
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))

	err := repo.DecrementStock(context.Background(), nil, "no-such-product", 1)
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Zero(t, insufficient.Available)
}

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()
	product := seedProduct(t, repo, 5)

	price := decimal.RequireFromString("4.25")
	require.NoError(t, repo.Update(ctx, product.ID, &model.ProductUpdate{Price: &price}))

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Price.Equal(price))
	assert.Equal(t, product.Name, reloaded.Name)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestUpdateUnknownProduct(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))

	status := model.ProductInactive
	err := repo.Update(context.Background(), "no-such-product", &model.ProductUpdate{Status: &status})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListActiveFiltersStatusAndCategory(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()

	active := seedProduct(t, repo, 5)
	inactive := seedProduct(t, repo, 5)
	status := model.ProductInactive
	require.NoError(t, repo.Update(ctx, inactive.ID, &model.ProductUpdate{Status: &status}))

	products, err := repo.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, active.ID, products[0].ID)

	products, err = repo.ListActive(ctx, "no-such-category")
	require.NoError(t, err)
	assert.Empty(t, products)
}
