package db

import (
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table the storefront owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.AttributeDefinition{},
		&model.Product{},
		&model.ProductImage{},
		&model.OptionGroup{},
		&model.OptionValue{},
		&model.ProductVariant{},
		&model.ProductAttribute{},
		&model.Order{},
		&model.OrderItem{},
		&model.WishlistItem{},
		&model.CartRecord{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds the default categories and attribute definitions when the
// catalog is empty.
func Seed() error {
	return seedCatalogFacets(DB)
}

func seedCatalogFacets(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Catalog facets already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	// 기본 카테고리
	categories := []model.Category{
		{Name: "반지", Slug: "rings", Position: 1},
		{Name: "목걸이", Slug: "necklaces", Position: 2},
		{Name: "귀걸이", Slug: "earrings", Position: 3},
		{Name: "팔찌", Slug: "bracelets", Position: 4},
	}
	// 필터용 커스텀 속성
	definitions := []model.AttributeDefinition{
		{Name: "소재", AllowedValues: []string{"24K", "18K", "14K", "Silver", "Platinum"}, Position: 1},
		{Name: "스톤", AllowedValues: []string{"다이아몬드", "진주", "큐빅", "없음"}, Position: 2},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&categories).Error; err != nil {
			logger.Error("Failed to seed categories", err)
			return err
		}
		if err := tx.Create(&definitions).Error; err != nil {
			logger.Error("Failed to seed attribute definitions", err)
			return err
		}
		logger.Info("Catalog facets seeded", map[string]interface{}{
			"categories":  len(categories),
			"definitions": len(definitions),
		})
		return nil
	})
}
