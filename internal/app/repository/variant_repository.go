package repository

import (
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
)

type VariantRepository interface {
	FindByID(id uint) (*model.ProductVariant, error)
	StockByIDs(ids []uint) (map[uint]int, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

// FindByID loads a variant with its product, images and option values
func (r *variantRepository) FindByID(id uint) (*model.ProductVariant, error) {
	logger.Debug("Finding product variant by ID", map[string]interface{}{
		"variant_id": id,
	})

	var variant model.ProductVariant
	err := r.db.
		Preload("Product").
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Options").
		Preload("Options.Group").
		First(&variant, id).Error
	if err != nil {
		logger.Error("Failed to find product variant", err, map[string]interface{}{
			"variant_id": id,
		})
		return nil, err
	}
	return &variant, nil
}

// StockByIDs returns the stock on hand per variant id. Unknown ids are absent.
func (r *variantRepository) StockByIDs(ids []uint) (map[uint]int, error) {
	stock := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}

	var rows []struct {
		ID            uint
		StockQuantity int
	}
	if err := r.db.Model(&model.ProductVariant{}).
		Select("id, stock_quantity").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to fetch variant stock", err, map[string]interface{}{
			"ids": ids,
		})
		return nil, err
	}

	for _, row := range rows {
		stock[row.ID] = row.StockQuantity
	}
	return stock, nil
}
