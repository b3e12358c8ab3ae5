package repository

import (
	"testing"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

// createRing stores a ring with color x size options:
// Gold/11 (3 in stock), Gold/13 (0), Rose/11 (1) plus the base variant.
func createRing(t *testing.T, testDB *gorm.DB) *model.Product {
	var rings model.Category
	require.NoError(t, testDB.FirstOrCreate(&rings, model.Category{Name: "반지", Slug: "rings"}).Error)
	var metal model.AttributeDefinition
	require.NoError(t, testDB.FirstOrCreate(&metal, model.AttributeDefinition{Name: "소재"}).Error)

	product := &model.Product{
		Name:        "18K Twist Ring",
		Description: "Twisted band",
		Price:       250000,
		Categories:  []model.Category{rings},
		Images:      []model.ProductImage{{Key: "products/twist-2.jpg", Position: 2}, {Key: "products/twist-1.jpg", Position: 1}},
		Attributes:  []model.ProductAttribute{{AttributeDefinitionID: metal.ID, Value: "18K"}},
	}
	require.NoError(t, testDB.Create(product).Error)

	color := model.OptionGroup{ProductID: product.ID, Name: "Color", Position: 1}
	size := model.OptionGroup{ProductID: product.ID, Name: "Size", Position: 2}
	require.NoError(t, testDB.Create(&color).Error)
	require.NoError(t, testDB.Create(&size).Error)

	gold := model.OptionValue{OptionGroupID: color.ID, Name: "Gold", Position: 1}
	rose := model.OptionValue{OptionGroupID: color.ID, Name: "Rose", Position: 2}
	s11 := model.OptionValue{OptionGroupID: size.ID, Name: "11", Position: 1}
	s13 := model.OptionValue{OptionGroupID: size.ID, Name: "13", Position: 2}
	for _, v := range []*model.OptionValue{&gold, &rose, &s11, &s13} {
		require.NoError(t, testDB.Create(v).Error)
	}

	variants := []model.ProductVariant{
		{ProductID: product.ID, SKU: "TW-BASE", IsBase: true, StockQuantity: 0},
		{ProductID: product.ID, SKU: "TW-G11", StockQuantity: 3, Options: []model.OptionValue{gold, s11}},
		{ProductID: product.ID, SKU: "TW-G13", StockQuantity: 0, AdditionalPrice: 10000, Options: []model.OptionValue{gold, s13}},
		{ProductID: product.ID, SKU: "TW-R11", StockQuantity: 1, Options: []model.OptionValue{rose, s11}},
	}
	for i := range variants {
		require.NoError(t, testDB.Create(&variants[i]).Error)
	}
	product.Variants = variants
	return product
}

func createUser(t *testing.T, testDB *gorm.DB, email string) *model.User {
	user := &model.User{Email: email, PasswordHash: "hash", Name: "Tester", Role: model.RoleUser, CustomerID: "cus-" + email}
	require.NoError(t, testDB.Create(user).Error)
	return user
}
