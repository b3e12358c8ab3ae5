package service

import (
	"context"
	"testing"

	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/catalog"
	"github.com/ikkim/udonggeum-storefront/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (ProductService, *gorm.DB) {
	testDB := setupTestDB(t)
	return NewProductService(repository.NewProductRepository(testDB), testURLs()), testDB
}

func cardIDs(cards []ProductCard) []uint {
	ids := []uint{}
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestProductService_ListProducts(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	ring := createRing(t, testDB)
	chain, _ := createChain(t, testDB)

	facets, err := svc.Facets()
	require.NoError(t, err)
	require.Len(t, facets, 2)
	metalID := facets[1].ID

	tests := []struct {
		name string
		sel  catalog.Selection
		want []uint
	}{
		{name: "No selection", sel: catalog.Selection{}, want: []uint{ring.Product.ID, chain.ID}},
		{name: "Category", sel: catalog.Selection{CategoryID: "rings"}, want: []uint{ring.Product.ID}},
		{name: "Attribute", sel: catalog.Selection{Attributes: map[string]string{metalID: "14K"}}, want: []uint{chain.ID}},
		{name: "Category and attribute", sel: catalog.Selection{CategoryID: "rings", Attributes: map[string]string{metalID: "14K"}}, want: []uint{}},
		{name: "Unknown category", sel: catalog.Selection{CategoryID: "bracelets"}, want: []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := svc.ListProducts(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cardIDs(cards))
		})
	}
}

func TestProductService_ListProductsThumbnails(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	createRing(t, testDB)
	createChain(t, testDB)

	cards, err := svc.ListProducts(catalog.Selection{})
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "https://cdn.test/products/twist-1.jpg", cards[0].Thumbnail)
	assert.Equal(t, []string{"rings"}, cards[0].Categories)
	assert.Equal(t, placeholderImage, cards[1].Thumbnail)
}

func TestProductService_Facets(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	createRing(t, testDB)
	createChain(t, testDB)

	facets, err := svc.Facets()
	require.NoError(t, err)
	require.Len(t, facets, 2)

	assert.Equal(t, catalog.CategoryFacetID, facets[0].ID)
	assert.Len(t, facets[0].Values, 2)
	assert.Equal(t, "소재", facets[1].Name)
	assert.ElementsMatch(t, []catalog.FacetValue{
		{ID: "14K", Name: "14K", Count: 1},
		{ID: "18K", Name: "18K", Count: 1},
	}, facets[1].Values)
}

func TestProductService_GetProduct(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	ring := createRing(t, testDB)

	detail, err := svc.GetProduct(ring.Product.ID)
	require.NoError(t, err)

	require.NotNil(t, detail.BaseVariantID)
	assert.Equal(t, ring.Base.ID, *detail.BaseVariantID)
	assert.Equal(t, []string{"https://cdn.test/products/twist-1.jpg"}, detail.Images)

	require.Len(t, detail.OptionGroups, 2)
	assert.Equal(t, "Color", detail.OptionGroups[0].Name)
	assert.Equal(t, "Size", detail.OptionGroups[1].Name)
	assert.Len(t, detail.OptionGroups[0].Values, 2)
	assert.Len(t, detail.Variants, 3, "base variant is not selectable")

	_, err = svc.GetProduct(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_ResolveVariants(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	ring := createRing(t, testDB)

	color := idString(ring.Color.ID)
	size := idString(ring.Size.ID)
	gold := variant.Selection{GroupID: color, ValueID: idString(ring.Gold.ID)}

	res, err := svc.ResolveVariants(ring.Product.ID, []variant.Selection{gold})
	require.NoError(t, err)
	assert.False(t, res.UseBaseVariant)
	assert.Equal(t, []string{idString(ring.G11.ID), idString(ring.G13.ID)}, res.ValidVariantIDs)
	assert.Nil(t, res.Match)
	assert.True(t, res.Availability[size][idString(ring.S11.ID)])
	assert.False(t, res.Availability[size][idString(ring.S13.ID)], "gold 13 is sold out")
	assert.True(t, res.Availability[color][idString(ring.Rose.ID)])

	res, err = svc.ResolveVariants(ring.Product.ID, []variant.Selection{
		gold,
		{GroupID: size, ValueID: idString(ring.S11.ID)},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, idString(ring.G11.ID), res.Match.ID)
	require.NotNil(t, res.Match.Stock)
	assert.Equal(t, 3, *res.Match.Stock)
	assert.Equal(t, "Color", res.Match.Options[0].GroupName)

	res, err = svc.ResolveVariants(ring.Product.ID, []variant.Selection{{GroupID: "999", ValueID: "1"}})
	require.NoError(t, err)
	assert.Empty(t, res.ValidVariantIDs)
}

func TestProductService_ResolveVariantsWithoutOptions(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	chain, base := createChain(t, testDB)

	res, err := svc.ResolveVariants(chain.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.UseBaseVariant)
	require.NotNil(t, res.BaseVariantID)
	assert.Equal(t, base.ID, *res.BaseVariantID)
	assert.Empty(t, res.ValidVariantIDs)

	_, err = svc.ResolveVariants(9999, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Search(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	ring := createRing(t, testDB)
	createChain(t, testDB)

	cards, err := svc.Search(context.Background(), "sess-1", "TWIST")
	require.NoError(t, err)
	assert.Equal(t, []uint{ring.Product.ID}, cardIDs(cards))

	cards, err = svc.Search(context.Background(), "", "chain")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}
