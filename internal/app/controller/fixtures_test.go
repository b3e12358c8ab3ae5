package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/internal/db"
	"github.com/ikkim/udonggeum-storefront/internal/events"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret  = "test-secret"
	testSession = "0b6f5a2e-6d0c-4f43-9a37-8a7f4f3c2d11"
)

type fakePayments struct {
	mu        sync.Mutex
	chargeErr error
	charges   int
}

func (f *fakePayments) Tokenize(ctx context.Context, req payment.TokenizeRequest) (*payment.TokenizeResponse, error) {
	if req.Card.Number == "4000000000000002" {
		return nil, payment.ErrCardDeclined
	}
	return &payment.TokenizeResponse{Token: "tok_test", Brand: "visa", Last4: req.Card.Number[len(req.Card.Number)-4:]}, nil
}

func (f *fakePayments) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.charges++
	now := time.Now()
	return &payment.ChargeResponse{ID: "ch_test", Status: payment.ChargeSucceeded, Amount: req.Amount, Currency: req.Currency, ApprovedAt: &now}, nil
}

type fakeShipping struct{}

func (fakeShipping) ValidateAddress(ctx context.Context, addr shipping.Address) (*shipping.Validation, error) {
	if addr.PostalCode == "00000" {
		return &shipping.Validation{Valid: false, Messages: []string{"unknown postal code"}}, nil
	}
	return &shipping.Validation{Valid: true}, nil
}

func (fakeShipping) Rates(ctx context.Context, addr shipping.Address, parcel shipping.Parcel) ([]shipping.Rate, error) {
	return []shipping.Rate{
		{ID: "standard", Carrier: "CJ", Service: "standard", Amount: 3000, EstimatedDays: 2},
		{ID: "express", Carrier: "CJ", Service: "express", Amount: 5000, EstimatedDays: 1},
	}, nil
}

type testEnv struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Auth     service.AuthService
	Carts    service.CartService
	Payments *fakePayments

	authController     *AuthController
	productController  *ProductController
	cartController     *CartController
	checkoutController *CheckoutController
	wishlistController *WishlistController
	authMiddleware     *middleware.AuthMiddleware
}

// setupTestEnv wires real services over SQLite with in-memory cart storage
// and fake payment and shipping gateways. Routes are registered by each test.
func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	urls := storage.NewURLBuilder("https://cdn.test", "bucket", "ap-northeast-2", "/static/placeholder.png")
	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	variantRepo := repository.NewVariantRepository(testDB)

	var mu sync.Mutex
	stores := map[string]*cart.MemoryStorage{}
	storageFor := func(sessionID string) cart.Storage {
		mu.Lock()
		defer mu.Unlock()
		if s, ok := stores[sessionID]; ok {
			return s
		}
		stores[sessionID] = cart.NewMemoryStorage()
		return stores[sessionID]
	}

	payments := &fakePayments{}
	authService := service.NewAuthService(userRepo, nil, testSecret, 15*time.Minute, 24*time.Hour)
	cartService := service.NewCartService(storageFor, productRepo, variantRepo, urls, payments, fakeShipping{}, nil)
	checkoutService := service.NewCheckoutService(
		cartService,
		repository.NewOrderRepository(testDB),
		variantRepo,
		payments,
		fakeShipping{},
		events.LogPublisher{},
		testDB,
	)

	env := &testEnv{
		DB:                 testDB,
		Auth:               authService,
		Carts:              cartService,
		Payments:           payments,
		authController:     NewAuthController(authService, cartService),
		productController:  NewProductController(service.NewProductService(productRepo, urls)),
		cartController:     NewCartController(cartService, authService, nil, nil),
		checkoutController: NewCheckoutController(checkoutService, authService),
		wishlistController: NewWishlistController(service.NewWishlistService(repository.NewWishlistRepository(testDB), productRepo)),
		authMiddleware:     middleware.NewAuthMiddleware(testSecret, nil),
	}

	env.Router = gin.New()
	env.Router.Use(middleware.LoggingMiddleware(), middleware.CartSession(config.CartConfig{
		CookieName: "cart_session",
		Retention:  time.Hour,
	}))
	return env
}

// do sends a JSON request with the test cart session cookie
func (env *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "cart_session", Value: testSession})
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// registerUser signs up a user and returns the access token
func (env *testEnv) registerUser(t *testing.T, email string) (*model.User, string) {
	user, tokens, err := env.Auth.Register(email, "password123", "Test User", "01012345678")
	require.NoError(t, err)
	return user, tokens.AccessToken
}

type ringFixture struct {
	Product     *model.Product
	Color, Size model.OptionGroup
	Gold, S11   model.OptionValue
	Base, G11   model.ProductVariant
}

// seedRing stores a ring with one Gold/11 variant (2 in stock)
func seedRing(t *testing.T, testDB *gorm.DB) *ringFixture {
	rings := model.Category{Name: "반지", Slug: "rings"}
	require.NoError(t, testDB.Create(&rings).Error)
	metal := model.AttributeDefinition{Name: "소재"}
	require.NoError(t, testDB.Create(&metal).Error)

	f := &ringFixture{}
	f.Product = &model.Product{
		Name:       "18K Twist Ring",
		Price:      250000,
		Categories: []model.Category{rings},
		Attributes: []model.ProductAttribute{{AttributeDefinitionID: metal.ID, Value: "18K"}},
	}
	require.NoError(t, testDB.Create(f.Product).Error)

	f.Color = model.OptionGroup{ProductID: f.Product.ID, Name: "Color", Position: 1}
	f.Size = model.OptionGroup{ProductID: f.Product.ID, Name: "Size", Position: 2}
	require.NoError(t, testDB.Create(&f.Color).Error)
	require.NoError(t, testDB.Create(&f.Size).Error)

	f.Gold = model.OptionValue{OptionGroupID: f.Color.ID, Name: "Gold", Position: 1}
	f.S11 = model.OptionValue{OptionGroupID: f.Size.ID, Name: "11", Position: 1}
	require.NoError(t, testDB.Create(&f.Gold).Error)
	require.NoError(t, testDB.Create(&f.S11).Error)

	f.Base = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-BASE", IsBase: true}
	f.G11 = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-G11", StockQuantity: 2, Options: []model.OptionValue{f.Gold, f.S11}}
	require.NoError(t, testDB.Create(&f.Base).Error)
	require.NoError(t, testDB.Create(&f.G11).Error)
	return f
}
