package repository

import (
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	// UpdatePayment stores the order's status, payment status and charge
	// fields.
	UpdatePayment(order *model.Order) error
	// Delete soft-deletes an order. Its row stays for auditing.
	Delete(id uint) error
	// DecrementStock takes quantity off a variant, failing with
	// ErrInsufficientStock when not enough is on hand.
	DecrementStock(variantID uint, quantity int) error
	// IncrementStock puts quantity back on a variant.
	IncrementStock(variantID uint, quantity int) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"cart_session_id": order.CartSessionID,
		"total_amount":    order.TotalAmount,
		"items":           len(order.OrderItems),
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"cart_session_id": order.CartSessionID,
			"total_amount":    order.TotalAmount,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.Preload("OrderItems").First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.db.Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdatePayment(order *model.Order) error {
	err := r.db.Model(order).Select("Status", "PaymentStatus", "PaymentChargeID", "PaymentApprovedAt").
		Updates(order).Error
	if err != nil {
		logger.Error("Failed to update order payment in database", err, map[string]interface{}{
			"order_id":       order.ID,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
		return err
	}
	return nil
}

func (r *orderRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Order{}, id).Error; err != nil {
		logger.Error("Failed to delete order in database", err, map[string]interface{}{
			"order_id": id,
		})
		return err
	}
	return nil
}

func (r *orderRepository) DecrementStock(variantID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	res := r.db.Model(&model.ProductVariant{}).
		Where("id = ? AND stock_quantity >= ?", variantID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		logger.Error("Failed to decrement variant stock", res.Error, map[string]interface{}{
			"variant_id": variantID,
			"quantity":   quantity,
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.Warn("Insufficient stock while decrementing", map[string]interface{}{
			"variant_id": variantID,
			"quantity":   quantity,
		})
		return ErrInsufficientStock
	}
	return nil
}

func (r *orderRepository) IncrementStock(variantID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	err := r.db.Model(&model.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
	if err != nil {
		logger.Error("Failed to restore variant stock", err, map[string]interface{}{
			"variant_id": variantID,
			"quantity":   quantity,
		})
		return err
	}
	return nil
}
