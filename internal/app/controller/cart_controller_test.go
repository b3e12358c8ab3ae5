package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartControllerTest(t *testing.T) (*testEnv, *ringFixture) {
	env := setupTestEnv(t)
	group := env.Router.Group("/cart", env.authMiddleware.OptionalAuthenticate())
	group.GET("", env.cartController.GetCart)
	group.DELETE("", env.cartController.ClearCart)
	group.POST("/reset", env.cartController.ResetCart)
	group.GET("/live", env.cartController.Live)
	group.POST("/items", env.cartController.AddToCart)
	group.PUT("/items/:variant_id", env.cartController.UpdateCartItem)
	group.DELETE("/items/:variant_id", env.cartController.RemoveFromCart)
	group.PUT("/shipping-address", env.cartController.SaveShippingAddress)
	group.PUT("/payment-method", env.cartController.SavePaymentMethod)
	group.PUT("/pop-up", env.cartController.SetPopUp)
	return env, seedRing(t, env.DB)
}

func cartItems(t *testing.T, response map[string]interface{}) []interface{} {
	c, ok := response["cart"].(map[string]interface{})
	require.True(t, ok)
	items, _ := c["items"].([]interface{})
	return items
}

func TestCartController_GetCart_Empty(t *testing.T) {
	env, _ := setupCartControllerTest(t)

	w := env.do(t, http.MethodGet, "/cart", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Empty(t, cartItems(t, response))
	assert.Equal(t, float64(0), response["subtotal"])
}

func TestCartController_AddToCart(t *testing.T) {
	tests := []struct {
		name       string
		body       func(ring *ringFixture) interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name: "Base variant of product",
			body: func(ring *ringFixture) interface{} {
				return AddToCartRequest{ProductID: ring.Product.ID, VariantID: ring.G11.ID, Quantity: 2}
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "Nothing selected",
			body:       func(*ringFixture) interface{} { return AddToCartRequest{Quantity: 1} },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_REQUIRED",
		},
		{
			name: "Zero quantity",
			body: func(ring *ringFixture) interface{} {
				return map[string]interface{}{"variant_id": ring.G11.ID, "quantity": 0}
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name: "Negative quantity",
			body: func(ring *ringFixture) interface{} {
				return map[string]interface{}{"variant_id": ring.G11.ID, "quantity": -1}
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CART_INVALID_QUANTITY",
		},
		{
			name: "Huge quantity",
			body: func(ring *ringFixture) interface{} {
				return map[string]interface{}{"variant_id": ring.G11.ID, "quantity": 9223372036854775807}
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:       "Unknown variant",
			body:       func(*ringFixture) interface{} { return AddToCartRequest{VariantID: 9999, Quantity: 1} },
			wantStatus: http.StatusNotFound,
			wantCode:   "PRODUCT_VARIANT_NOT_FOUND",
		},
		{
			name:       "Unknown product",
			body:       func(*ringFixture) interface{} { return AddToCartRequest{ProductID: 9999, Quantity: 1} },
			wantStatus: http.StatusNotFound,
			wantCode:   "PRODUCT_NOT_FOUND",
		},
		{
			name: "Over stock",
			body: func(ring *ringFixture) interface{} {
				return AddToCartRequest{VariantID: ring.G11.ID, Quantity: 3}
			},
			wantStatus: http.StatusConflict,
			wantCode:   "PRODUCT_OUT_OF_STOCK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, ring := setupCartControllerTest(t)

			w := env.do(t, http.MethodPost, "/cart/items", tt.body(ring), "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode(t, w)["error"])
			}
		})
	}
}

func TestCartController_ItemLifecycle(t *testing.T) {
	env, ring := setupCartControllerTest(t)
	variantPath := fmt.Sprintf("/cart/items/%d", ring.G11.ID)

	w := env.do(t, http.MethodPost, "/cart/items", AddToCartRequest{VariantID: ring.G11.ID, Quantity: 1}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	response := decode(t, w)
	items := cartItems(t, response)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "18K Twist Ring (Gold / 11)", item["name"])
	assert.Equal(t, float64(250000), response["subtotal"])

	w = env.do(t, http.MethodPut, variantPath, map[string]int{"quantity": 2}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["item_count"])

	w = env.do(t, http.MethodPut, "/cart/items/9999", map[string]int{"quantity": 2}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", decode(t, w)["error"])

	w = env.do(t, http.MethodDelete, variantPath, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cartItems(t, decode(t, w)))

	w = env.do(t, http.MethodDelete, variantPath, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_UpdateNonPositiveRemovesLine(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		t.Run(fmt.Sprintf("Quantity %d", quantity), func(t *testing.T) {
			env, ring := setupCartControllerTest(t)
			variantPath := fmt.Sprintf("/cart/items/%d", ring.G11.ID)

			w := env.do(t, http.MethodPost, "/cart/items", AddToCartRequest{VariantID: ring.G11.ID, Quantity: 1}, "")
			require.Equal(t, http.StatusCreated, w.Code)

			w = env.do(t, http.MethodPut, variantPath, map[string]int{"quantity": quantity}, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, cartItems(t, decode(t, w)))
		})
	}
}

func TestCartController_UpdateCartItemRejects(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{name: "Missing quantity", body: map[string]int{}, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_INVALID_INPUT"},
		{name: "Above limit", body: map[string]int{"quantity": 10000}, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_INVALID_INPUT"},
		{name: "Over stock", body: map[string]int{"quantity": 3}, wantStatus: http.StatusConflict, wantCode: "PRODUCT_OUT_OF_STOCK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, ring := setupCartControllerTest(t)
			w := env.do(t, http.MethodPost, "/cart/items", AddToCartRequest{VariantID: ring.G11.ID, Quantity: 1}, "")
			require.Equal(t, http.StatusCreated, w.Code)

			w = env.do(t, http.MethodPut, fmt.Sprintf("/cart/items/%d", ring.G11.ID), tt.body, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
}

func TestCartController_ClearKeepsAddress(t *testing.T) {
	env, ring := setupCartControllerTest(t)

	w := env.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ring.Product.ID, VariantID: ring.G11.ID, Quantity: 1}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPut, "/cart/shipping-address", map[string]string{"city": "서울"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Empty(t, cartItems(t, response))
	address := response["cart"].(map[string]interface{})["shipping_address"].(map[string]interface{})
	assert.Equal(t, "서울", address["city"])
}

func TestCartController_ResetDropsEverything(t *testing.T) {
	env, ring := setupCartControllerTest(t)

	w := env.do(t, http.MethodPost, "/cart/items", AddToCartRequest{VariantID: ring.G11.ID, Quantity: 1}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPut, "/cart/shipping-address", map[string]string{"city": "서울"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/cart/reset", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Empty(t, cartItems(t, response))
	assert.NotContains(t, response["cart"], "shipping_address")
	assert.Equal(t, float64(0), response["subtotal"])
}

func TestCartController_SaveShippingAddress(t *testing.T) {
	env, _ := setupCartControllerTest(t)
	address := map[string]string{
		"recipient":   "김우동",
		"line1":       "테헤란로 123",
		"city":        "서울",
		"postal_code": "06236",
		"country":     "KR",
	}

	w := env.do(t, http.MethodPut, "/cart/shipping-address", address, "")
	require.Equal(t, http.StatusOK, w.Code)

	address["postal_code"] = "00000"
	w = env.do(t, http.MethodPut, "/cart/shipping-address", address, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CART_ADDRESS_UNDELIVERABLE", decode(t, w)["error"])

	c, err := env.Carts.GetCart(context.Background(), testSession)
	require.NoError(t, err)
	require.NotNil(t, c.ShippingAddress)
	assert.Equal(t, "06236", c.ShippingAddress.PostalCode, "rejected address is not stored")
}

func TestCartController_SavePaymentMethod(t *testing.T) {
	env, _ := setupCartControllerTest(t)
	_, token := env.registerUser(t, "buyer@example.com")

	card := PaymentMethodRequest{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
	w := env.do(t, http.MethodPut, "/cart/payment-method", card, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), card.Number)

	c, err := env.Carts.GetCart(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, "tok_test", c.PaymentMethod)

	card.Number = "4000000000000002"
	w = env.do(t, http.MethodPut, "/cart/payment-method", card, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	card.ExpMonth = 13
	w = env.do(t, http.MethodPut, "/cart/payment-method", card, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", decode(t, w)["error"])
}

func TestCartController_PopUpIsNotPersisted(t *testing.T) {
	env, _ := setupCartControllerTest(t)

	w := env.do(t, http.MethodPut, "/cart/pop-up", PopUpRequest{Visible: true}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cart"].(map[string]interface{})["pop_up"])
}

func TestCartController_LiveWithoutHub(t *testing.T) {
	env, _ := setupCartControllerTest(t)

	w := env.do(t, http.MethodGet, "/cart/live", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRespondCartError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "Persist failure", err: fmt.Errorf("%w: disk full", cart.ErrPersist), wantStatus: http.StatusInternalServerError, wantCode: "CART_NOT_SAVED"},
		{name: "Card declined", err: fmt.Errorf("%w: %w", service.ErrExternalService, payment.ErrCardDeclined), wantStatus: http.StatusBadRequest, wantCode: "ORDER_PAYMENT_DECLINED"},
		{name: "Gateway down", err: fmt.Errorf("%w: %w", service.ErrExternalService, payment.ErrNetworkError), wantStatus: http.StatusBadGateway, wantCode: "INTERNAL_EXTERNAL_API"},
		{name: "Unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondCartError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
}
