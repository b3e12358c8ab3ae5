package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantRepository_FindByID(t *testing.T) {
	testDB := setupTestDB(t)
	ring := createRing(t, testDB)
	repo := NewVariantRepository(testDB)

	v, err := repo.FindByID(ring.Variants[2].ID)
	require.NoError(t, err)
	assert.Equal(t, ring.ID, v.Product.ID)
	assert.Equal(t, int64(250000), v.Product.Price)
	assert.Equal(t, int64(10000), v.AdditionalPrice)
	assert.Len(t, v.Product.Images, 2)
	assert.Len(t, v.Options, 2)

	_, err = repo.FindByID(9999)
	assert.Error(t, err)
}

func TestVariantRepository_StockByIDs(t *testing.T) {
	testDB := setupTestDB(t)
	ring := createRing(t, testDB)
	repo := NewVariantRepository(testDB)

	stock, err := repo.StockByIDs([]uint{ring.Variants[1].ID, ring.Variants[2].ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{ring.Variants[1].ID: 3, ring.Variants[2].ID: 0}, stock)
}
