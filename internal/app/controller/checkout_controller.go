package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/pkg/lookup"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
	authService     service.AuthService
}

func NewCheckoutController(checkoutService service.CheckoutService, authService service.AuthService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		authService:     authService,
	}
}

type CheckoutRequest struct {
	ShippingRateID string `json:"shipping_rate_id"` // 비어 있으면 가장 저렴한 요금
}

func respondCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "장바구니가 비어 있습니다")
	case errors.Is(err, service.ErrShippingAddressRequired):
		apperrors.BadRequest(c, apperrors.CartAddressRequired, "배송지를 입력해주세요")
	case errors.Is(err, service.ErrPaymentMethodRequired):
		apperrors.BadRequest(c, apperrors.CartPaymentRequired, "결제 수단을 등록해주세요")
	case errors.Is(err, service.ErrShippingRateNotFound):
		apperrors.Conflict(c, apperrors.OrderShippingRateGone, "선택한 배송 방법을 사용할 수 없습니다")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.ProductOutOfStock, "재고가 부족한 상품이 있습니다")
	case errors.Is(err, service.ErrVariantNotFound):
		apperrors.Conflict(c, apperrors.VariantNotFound, "판매가 중단된 상품이 있습니다")
	case errors.Is(err, service.ErrPaymentDeclined):
		apperrors.RespondWithError(c, http.StatusPaymentRequired, apperrors.OrderPaymentDeclined, "결제가 승인되지 않았습니다")
	case errors.Is(err, lookup.ErrSuperseded):
		apperrors.Conflict(c, apperrors.RequestSuperseded, "새로운 요청으로 대체되었습니다")
	case errors.Is(err, service.ErrExternalService):
		apperrors.BadGateway(c, "")
	default:
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "checkout")
	}
}

// QuoteShipping returns shipping rates for the session cart
// GET /api/v1/checkout/rates
func (ctrl *CheckoutController) QuoteShipping(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	rates, err := ctrl.checkoutService.QuoteShipping(c.Request.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, lookup.ErrSuperseded) {
			middleware.GetLoggerFromContext(c).Warn("Failed to quote shipping", map[string]interface{}{
				"cart_session": sessionID,
				"error":        err.Error(),
			})
		}
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rates": rates,
	})
}

// Checkout charges the session cart and creates the order. Guests may check
// out; signed-in users get the order on their account.
// POST /api/v1/checkout
func (ctrl *CheckoutController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sessionID := middleware.GetCartSessionID(c)

	var req CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력 정보가 올바르지 않습니다")
			return
		}
	}

	var user *model.User
	if userID, ok := middleware.GetUserID(c); ok {
		u, err := ctrl.authService.GetUserByID(userID)
		if err != nil {
			log.Error("Failed to load user for checkout", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.Unauthorized(c, "")
			return
		}
		user = u
	}

	order, err := ctrl.checkoutService.Checkout(c.Request.Context(), service.CheckoutRequest{
		SessionID:      sessionID,
		User:           user,
		ShippingRateID: req.ShippingRateID,
	})
	if err != nil {
		log.Warn("Checkout failed", map[string]interface{}{
			"cart_session": sessionID,
			"error":        err.Error(),
		})
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"order":   order,
	})
}

// GetOrders returns the user's orders
// GET /api/v1/orders
func (ctrl *CheckoutController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.checkoutService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one of the user's orders
// GET /api/v1/orders/:id
func (ctrl *CheckoutController) GetOrderByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.checkoutService.GetOrder(userID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "주문을 찾을 수 없습니다")
			return
		}
		log.Error("Failed to fetch order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
