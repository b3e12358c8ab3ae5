package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	FindByIDs(ids []uint) ([]model.Product, error)
	Search(ctx context.Context, query string, limit int) ([]model.Product, error)
	ListCategories() ([]model.Category, error)
	ListAttributeDefinitions() ([]model.AttributeDefinition, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"variants": len(product.Variants),
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

// listing preloads what the catalog filter and product cards need
func (r *productRepository) listing(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Product{}).
		Preload("Categories").
		Preload("Attributes").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}

// detail preloads the option graph the variant resolver needs
func (r *productRepository) detail(db *gorm.DB) *gorm.DB {
	return r.listing(db).
		Preload("OptionGroups", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("OptionGroups.Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Variants.Options").
		Preload("Variants.Options.Group")
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	logger.Debug("Finding all products in database", nil)

	var products []model.Product
	if err := r.listing(r.db).Order("products.id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to find products in database", err, nil)
		return nil, err
	}

	logger.Debug("Products found in database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.detail(r.db).First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"variants":   len(product.Variants),
	})
	return &product, nil
}

// FindByIDs fetches products in one query. Missing ids are skipped.
func (r *productRepository) FindByIDs(ids []uint) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	logger.Debug("Finding products by IDs in database", map[string]interface{}{
		"count": len(ids),
	})

	var products []model.Product
	if err := r.listing(r.db).Where("products.id IN ?", ids).Order("products.id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"ids": ids,
		})
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	logger.Debug("Searching products in database", map[string]interface{}{
		"query": query,
		"limit": limit,
	})

	q := r.listing(r.db.WithContext(ctx))
	if query != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(query))
		q = q.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var products []model.Product
	if err := q.Order("products.id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to search products in database", err, map[string]interface{}{
			"query": query,
		})
		return nil, err
	}

	logger.Debug("Products found by search", map[string]interface{}{
		"query": query,
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Order("position ASC, id ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err, nil)
		return nil, err
	}
	return categories, nil
}

func (r *productRepository) ListAttributeDefinitions() ([]model.AttributeDefinition, error) {
	var definitions []model.AttributeDefinition
	if err := r.db.Order("position ASC, id ASC").Find(&definitions).Error; err != nil {
		logger.Error("Failed to list attribute definitions", err, nil)
		return nil, err
	}
	return definitions, nil
}
