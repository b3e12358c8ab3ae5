package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/internal/db"
	"github.com/ikkim/udonggeum-storefront/internal/events"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const placeholderImage = "/static/placeholder.png"

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func testURLs() *storage.URLBuilder {
	return storage.NewURLBuilder("https://cdn.test", "bucket", "ap-northeast-2", placeholderImage)
}

type ringFixture struct {
	Product              *model.Product
	Color, Size          model.OptionGroup
	Gold, Rose, S11, S13 model.OptionValue
	Base, G11, G13, R11  model.ProductVariant
}

// createRing stores an 18K ring in color x size: Gold/11 (3 in stock),
// Gold/13 (sold out, +10000) and Rose/11 (1), plus the base variant.
func createRing(t *testing.T, testDB *gorm.DB) *ringFixture {
	var rings model.Category
	require.NoError(t, testDB.FirstOrCreate(&rings, model.Category{Name: "반지", Slug: "rings"}).Error)
	var metal model.AttributeDefinition
	require.NoError(t, testDB.FirstOrCreate(&metal, model.AttributeDefinition{Name: "소재"}).Error)

	f := &ringFixture{}
	f.Product = &model.Product{
		Name:        "18K Twist Ring",
		Description: "Twisted band",
		Price:       250000,
		Categories:  []model.Category{rings},
		Images:      []model.ProductImage{{Key: "products/twist-1.jpg", Position: 1}},
		Attributes:  []model.ProductAttribute{{AttributeDefinitionID: metal.ID, Value: "18K"}},
	}
	require.NoError(t, testDB.Create(f.Product).Error)

	f.Color = model.OptionGroup{ProductID: f.Product.ID, Name: "Color", Position: 1}
	f.Size = model.OptionGroup{ProductID: f.Product.ID, Name: "Size", Position: 2}
	require.NoError(t, testDB.Create(&f.Color).Error)
	require.NoError(t, testDB.Create(&f.Size).Error)

	f.Gold = model.OptionValue{OptionGroupID: f.Color.ID, Name: "Gold", Position: 1}
	f.Rose = model.OptionValue{OptionGroupID: f.Color.ID, Name: "Rose", Position: 2}
	f.S11 = model.OptionValue{OptionGroupID: f.Size.ID, Name: "11", Position: 1}
	f.S13 = model.OptionValue{OptionGroupID: f.Size.ID, Name: "13", Position: 2}
	for _, v := range []*model.OptionValue{&f.Gold, &f.Rose, &f.S11, &f.S13} {
		require.NoError(t, testDB.Create(v).Error)
	}

	f.Base = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-BASE", IsBase: true, StockQuantity: 0}
	// size listed first to check display ordering by group position
	f.G11 = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-G11", StockQuantity: 3, Options: []model.OptionValue{f.S11, f.Gold}}
	f.G13 = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-G13", StockQuantity: 0, AdditionalPrice: 10000, Options: []model.OptionValue{f.Gold, f.S13}}
	f.R11 = model.ProductVariant{ProductID: f.Product.ID, SKU: "TW-R11", StockQuantity: 1, ImageKey: "products/twist-rose.jpg", Options: []model.OptionValue{f.Rose, f.S11}}
	for _, v := range []*model.ProductVariant{&f.Base, &f.G11, &f.G13, &f.R11} {
		require.NoError(t, testDB.Create(v).Error)
	}
	return f
}

// createChain stores a necklace without options; only its base variant
// (5 in stock) is purchasable.
func createChain(t *testing.T, testDB *gorm.DB) (*model.Product, model.ProductVariant) {
	var necklaces model.Category
	require.NoError(t, testDB.FirstOrCreate(&necklaces, model.Category{Name: "목걸이", Slug: "necklaces"}).Error)
	var metal model.AttributeDefinition
	require.NoError(t, testDB.FirstOrCreate(&metal, model.AttributeDefinition{Name: "소재"}).Error)

	product := &model.Product{
		Name:       "14K Chain",
		Price:      120000,
		Categories: []model.Category{necklaces},
		Attributes: []model.ProductAttribute{{AttributeDefinitionID: metal.ID, Value: "14K"}},
	}
	require.NoError(t, testDB.Create(product).Error)

	base := model.ProductVariant{ProductID: product.ID, SKU: "CH-BASE", IsBase: true, StockQuantity: 5}
	require.NoError(t, testDB.Create(&base).Error)
	return product, base
}

type fakePayments struct {
	mu           sync.Mutex
	tokenizeErr  error
	chargeErr    error
	chargeStatus payment.ChargeStatus
	tokenized    []payment.TokenizeRequest
	charges      []payment.ChargeRequest
	keys         []string

	// onCharge runs at the start of every Charge call
	onCharge func()
}

func (f *fakePayments) Tokenize(ctx context.Context, req payment.TokenizeRequest) (*payment.TokenizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenizeErr != nil {
		return nil, f.tokenizeErr
	}
	f.tokenized = append(f.tokenized, req)
	last4 := req.Card.Number[len(req.Card.Number)-4:]
	return &payment.TokenizeResponse{Token: "tok_" + last4, Brand: "visa", Last4: last4}, nil
}

func (f *fakePayments) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error) {
	if f.onCharge != nil {
		f.onCharge()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, req.IdempotencyKey)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.charges = append(f.charges, req)
	status := f.chargeStatus
	if status == "" {
		status = payment.ChargeSucceeded
	}
	now := time.Now()
	return &payment.ChargeResponse{ID: "ch_1", Status: status, Amount: req.Amount, Currency: req.Currency, ApprovedAt: &now}, nil
}

type fakeShipping struct {
	mu          sync.Mutex
	invalid     bool
	normalized  *shipping.Address
	validateErr error
	rates       []shipping.Rate
	ratesErr    error

	// holdFirst makes the first Rates call wait for cancellation
	holdFirst bool
	started   chan struct{}
	calls     int
}

func (f *fakeShipping) ValidateAddress(ctx context.Context, addr shipping.Address) (*shipping.Validation, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.invalid {
		return &shipping.Validation{Valid: false, Messages: []string{"unknown postal code"}}, nil
	}
	return &shipping.Validation{Valid: true, Normalized: f.normalized}, nil
}

func (f *fakeShipping) Rates(ctx context.Context, addr shipping.Address, parcel shipping.Parcel) ([]shipping.Rate, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.holdFirst && call == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func defaultRates() []shipping.Rate {
	return []shipping.Rate{
		{ID: "express", Carrier: "CJ", Service: "express", Amount: 5000, EstimatedDays: 1},
		{ID: "standard", Carrier: "CJ", Service: "standard", Amount: 3000, EstimatedDays: 2},
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []events.CartCheckedOut
}

func (f *fakePublisher) PublishCartCheckedOut(ctx context.Context, ev events.CartCheckedOut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	carts map[string][]cart.Cart
}

func (n *recordingNotifier) NotifyCart(sessionID string, c cart.Cart) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.carts == nil {
		n.carts = make(map[string][]cart.Cart)
	}
	n.carts[sessionID] = append(n.carts[sessionID], c)
}

func (n *recordingNotifier) count(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.carts[sessionID])
}

type memoryCarts struct {
	mu       sync.Mutex
	sessions map[string]*cart.MemoryStorage
}

func (m *memoryCarts) storageFor(sessionID string) cart.Storage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]*cart.MemoryStorage)
	}
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := cart.NewMemoryStorage()
	m.sessions[sessionID] = s
	return s
}

type failingStorage struct{}

func (failingStorage) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, cart.ErrNotStored
}

func (failingStorage) Save(ctx context.Context, key string, data []byte) error {
	return errors.New("disk full")
}

func strPtr(s string) *string { return &s }

func completeAddress() cart.AddressPatch {
	return cart.AddressPatch{
		Recipient:  strPtr("김우동"),
		Phone:      strPtr("01012345678"),
		Line1:      strPtr("테헤란로 123"),
		City:       strPtr("서울"),
		PostalCode: strPtr("06236"),
		Country:    strPtr("KR"),
	}
}
