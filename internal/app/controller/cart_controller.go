package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	ws "github.com/ikkim/udonggeum-storefront/internal/websocket"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
)

type CartController struct {
	cartService service.CartService
	authService service.AuthService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

// NewCartController builds the cart endpoints. Live updates are served only
// when hub is set, to browsers from allowedOrigins.
func NewCartController(cartService service.CartService, authService service.AuthService, hub *ws.Hub, allowedOrigins []string) *CartController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &CartController{
		cartService: cartService,
		authService: authService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id"`
	VariantID uint `json:"variant_id"` // 0이면 기본 variant
	Quantity  int  `json:"quantity" binding:"required,max=9999"`
}

// 0 이하의 수량은 항목 삭제
type UpdateCartRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=9999"`
}

type PaymentMethodRequest struct {
	Number   string `json:"number" binding:"required"`
	ExpMonth int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" binding:"required"`
	CVC      string `json:"cvc" binding:"required"`
	Holder   string `json:"holder"`
}

type PopUpRequest struct {
	Visible bool `json:"visible"`
}

func cartResponse(c cart.Cart) gin.H {
	return gin.H{
		"cart":       c,
		"subtotal":   c.Subtotal(),
		"item_count": c.ItemCount(),
	}
}

// respondCartError maps cart service errors to responses
func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "수량은 1개 이상이어야 합니다")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "장바구니에 없는 상품입니다")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "상품을 찾을 수 없습니다")
	case errors.Is(err, service.ErrVariantNotFound):
		apperrors.NotFound(c, apperrors.VariantNotFound, "선택한 옵션의 상품을 찾을 수 없습니다")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.ProductOutOfStock, "재고가 부족합니다")
	case errors.Is(err, service.ErrAddressUndeliverable):
		apperrors.BadRequest(c, apperrors.CartAddressUndelivered, "배송할 수 없는 주소입니다")
	case errors.Is(err, payment.ErrInvalidRequest), errors.Is(err, payment.ErrCardDeclined):
		apperrors.BadRequest(c, apperrors.OrderPaymentDeclined, "카드 정보를 확인해주세요")
	case errors.Is(err, service.ErrExternalService):
		apperrors.BadGateway(c, "")
	case errors.Is(err, cart.ErrPersist):
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.CartNotSaved, "장바구니를 저장하지 못했습니다. 잠시 후 다시 시도해주세요")
	default:
		apperrors.InternalError(c, "")
	}
}

// GetCart returns the session cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	current, err := ctrl.cartService.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch cart", err, map[string]interface{}{
			"cart_session": sessionID,
		})
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(current))
}

// AddToCart adds a variant to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sessionID := middleware.GetCartSessionID(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력 정보가 올바르지 않습니다")
		return
	}
	if req.ProductID == 0 && req.VariantID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "상품을 선택해주세요")
		return
	}

	updated, err := ctrl.cartService.AddItem(c.Request.Context(), sessionID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		log.Warn("Failed to add item to cart", map[string]interface{}{
			"cart_session": sessionID,
			"product_id":   req.ProductID,
			"variant_id":   req.VariantID,
			"error":        err.Error(),
		})
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cartResponse(updated))
}

// UpdateCartItem sets the quantity of a line item
// PUT /api/v1/cart/items/:variant_id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력 정보가 올바르지 않습니다")
		return
	}

	updated, err := ctrl.cartService.UpdateItem(c.Request.Context(), sessionID, c.Param("variant_id"), *req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// RemoveFromCart removes a line item
// DELETE /api/v1/cart/items/:variant_id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	updated, err := ctrl.cartService.RemoveItem(c.Request.Context(), sessionID, c.Param("variant_id"))
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// ClearCart empties the items, keeping address and payment method
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	updated, err := ctrl.cartService.ClearCart(c.Request.Context(), sessionID)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// ResetCart discards items, address and payment method
// POST /api/v1/cart/reset
func (ctrl *CartController) ResetCart(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	updated, err := ctrl.cartService.ResetCart(c.Request.Context(), sessionID)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// SaveShippingAddress merges the given address fields
// PUT /api/v1/cart/shipping-address
func (ctrl *CartController) SaveShippingAddress(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	var patch cart.AddressPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "주소 정보가 올바르지 않습니다")
		return
	}

	updated, err := ctrl.cartService.SaveShippingAddress(c.Request.Context(), sessionID, patch)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// SavePaymentMethod tokenizes a card for the cart
// PUT /api/v1/cart/payment-method
func (ctrl *CartController) SavePaymentMethod(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sessionID := middleware.GetCartSessionID(c)

	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// card fields are never logged
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "카드 정보가 올바르지 않습니다")
		return
	}

	// guests tokenize under their cart session
	customerID := sessionID
	if userID, ok := middleware.GetUserID(c); ok {
		user, err := ctrl.authService.GetUserByID(userID)
		if err != nil {
			log.Error("Failed to load customer for payment method", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.Unauthorized(c, "")
			return
		}
		customerID = user.CustomerID
	}

	updated, err := ctrl.cartService.SavePaymentMethod(c.Request.Context(), sessionID, customerID, payment.Card{
		Number:   req.Number,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
		CVC:      req.CVC,
		Holder:   req.Holder,
	})
	if err != nil {
		log.Warn("Failed to save payment method", map[string]interface{}{
			"cart_session": sessionID,
			"error":        err.Error(),
		})
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// SetPopUp shows or hides the mini cart
// PUT /api/v1/cart/pop-up
func (ctrl *CartController) SetPopUp(c *gin.Context) {
	sessionID := middleware.GetCartSessionID(c)

	var req PopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력 정보가 올바르지 않습니다")
		return
	}

	updated, err := ctrl.cartService.SetPopUp(c.Request.Context(), sessionID, req.Visible)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(updated))
}

// Live streams every committed change of the session cart
// GET /api/v1/cart/live
func (ctrl *CartController) Live(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sessionID := middleware.GetCartSessionID(c)

	if ctrl.hub == nil {
		apperrors.NotFound(c, apperrors.ResourceNotFound, "실시간 장바구니를 사용할 수 없습니다")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, sessionID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Live cart connection established", map[string]interface{}{
		"cart_session": sessionID,
	})
}
