package service

import (
	"errors"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
)

type WishlistService interface {
	GetUserWishlist(userID uint) ([]model.WishlistItem, error)
	// Toggle flips the favorite flag of a product and returns the new value.
	Toggle(userID, productID uint) (bool, error)
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
}

func NewWishlistService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
) WishlistService {
	return &wishlistService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}
}

func (s *wishlistService) GetUserWishlist(userID uint) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user wishlist", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return items, nil
}

func (s *wishlistService) Toggle(userID, productID uint) (bool, error) {
	logger.Info("Toggling wishlist item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	exists, err := s.wishlistRepo.Exists(userID, productID)
	if err != nil {
		return false, err
	}

	if exists {
		if err := s.wishlistRepo.Delete(userID, productID); err != nil {
			logger.Error("Failed to delete wishlist item", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return true, err
		}
		return false, nil
	}

	if _, err := s.productRepo.FindByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to wishlist: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return false, ErrProductNotFound
		}
		return false, err
	}

	if err := s.wishlistRepo.Create(&model.WishlistItem{UserID: userID, ProductID: productID}); err != nil {
		logger.Error("Failed to create wishlist item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return false, err
	}
	return true, nil
}
