package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrVariantNotFound      = errors.New("product variant not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrAddressUndeliverable = errors.New("shipping address is not deliverable")
)

// CartStorageFactory returns the storage backing one cart session.
type CartStorageFactory func(sessionID string) cart.Storage

// CartNotifier is told about every committed change of a session's cart.
type CartNotifier interface {
	NotifyCart(sessionID string, c cart.Cart)
}

type CartService interface {
	GetCart(ctx context.Context, sessionID string) (cart.Cart, error)
	// AddItem adds quantity of a variant. A zero variantID selects the
	// product's base variant.
	AddItem(ctx context.Context, sessionID string, productID, variantID uint, quantity int) (cart.Cart, error)
	UpdateItem(ctx context.Context, sessionID, variantID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, sessionID, variantID string) (cart.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (cart.Cart, error)
	// RemoveOrdered takes the ordered quantities off the cart. Lines or
	// quantities added after the order was placed stay.
	RemoveOrdered(ctx context.Context, sessionID string, ordered []cart.LineItem) (cart.Cart, error)
	ResetCart(ctx context.Context, sessionID string) (cart.Cart, error)
	SaveShippingAddress(ctx context.Context, sessionID string, patch cart.AddressPatch) (cart.Cart, error)
	SavePaymentMethod(ctx context.Context, sessionID, customerID string, card payment.Card) (cart.Cart, error)
	SetPopUp(ctx context.Context, sessionID string, visible bool) (cart.Cart, error)
	// EvictIdle drops in-memory carts unused for idle. Their stored
	// documents are untouched.
	EvictIdle(idle time.Duration) int
}

type cartSession struct {
	store    *cart.Store
	lastUsed time.Time
}

type cartService struct {
	mu       sync.Mutex
	sessions map[string]*cartSession

	storageFor  CartStorageFactory
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
	urls        *storage.URLBuilder
	payments    PaymentGateway
	shipping    ShippingGateway
	notifier    CartNotifier
}

// NewCartService keeps one cart store per session. shipping and notifier
// may be nil.
func NewCartService(
	storageFor CartStorageFactory,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	urls *storage.URLBuilder,
	payments PaymentGateway,
	shippingGateway ShippingGateway,
	notifier CartNotifier,
) CartService {
	return &cartService{
		sessions:    make(map[string]*cartSession),
		storageFor:  storageFor,
		productRepo: productRepo,
		variantRepo: variantRepo,
		urls:        urls,
		payments:    payments,
		shipping:    shippingGateway,
		notifier:    notifier,
	}
}

func (s *cartService) store(ctx context.Context, sessionID string) *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastUsed = time.Now()
		return sess.store
	}

	opts := []cart.Option{
		cart.WithLogFields(map[string]interface{}{"cart_session": sessionID}),
	}
	if s.notifier != nil {
		opts = append(opts, cart.WithObserver(func(c cart.Cart) {
			s.notifier.NotifyCart(sessionID, c)
		}))
	}

	// a cancelled request must not hydrate an empty cart over a stored one
	st := cart.NewStore(context.WithoutCancel(ctx), s.storageFor(sessionID), opts...)
	s.sessions[sessionID] = &cartSession{store: st, lastUsed: time.Now()}
	return st
}

func (s *cartService) dispatch(ctx context.Context, sessionID string, cmd cart.Command) (cart.Cart, error) {
	res, err := s.store(ctx, sessionID).Dispatch(context.WithoutCancel(ctx), cmd)
	if err != nil {
		logger.FromContext(ctx).Error("Cart change was not persisted", err, map[string]interface{}{
			"cart_session": sessionID,
			"command":      cmd.Name(),
		})
		return res.Cart, err
	}

	switch res.Status {
	case cart.StatusNotFound:
		return res.Cart, ErrCartItemNotFound
	case cart.StatusInvalid:
		return res.Cart, ErrInvalidQuantity
	}
	return res.Cart, nil
}

func (s *cartService) GetCart(ctx context.Context, sessionID string) (cart.Cart, error) {
	return s.store(ctx, sessionID).State(), nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, productID, variantID uint, quantity int) (cart.Cart, error) {
	log := logger.FromContext(ctx)
	log.Info("Adding item to cart", map[string]interface{}{
		"cart_session": sessionID,
		"product_id":   productID,
		"variant_id":   variantID,
		"quantity":     quantity,
	})

	if quantity < 1 {
		return s.store(ctx, sessionID).State(), ErrInvalidQuantity
	}

	v, err := s.resolveVariant(productID, variantID)
	if err != nil {
		return s.store(ctx, sessionID).State(), err
	}

	current := s.store(ctx, sessionID).State()
	inCart := 0
	if idx := current.Find(idString(v.ID)); idx >= 0 {
		inCart = current.Items[idx].Quantity
	}
	if quantity > v.StockQuantity-inCart {
		log.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"cart_session": sessionID,
			"variant_id":   v.ID,
			"requested":    quantity,
			"in_cart":      inCart,
			"available":    v.StockQuantity,
		})
		return current, ErrInsufficientStock
	}

	return s.dispatch(ctx, sessionID, cart.Add{Item: s.lineItem(v, quantity)})
}

// resolveVariant loads the variant to add. Without a variant id the
// product's base variant is used.
func (s *cartService) resolveVariant(productID, variantID uint) (*model.ProductVariant, error) {
	if variantID == 0 {
		if productID == 0 {
			return nil, ErrVariantNotFound
		}
		product, err := s.productRepo.FindByID(productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		base := product.BaseVariant()
		if base == nil {
			return nil, ErrVariantNotFound
		}
		variantID = base.ID
	}

	v, err := s.variantRepo.FindByID(variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	if productID != 0 && v.ProductID != productID {
		return nil, ErrVariantNotFound
	}
	return v, nil
}

func (s *cartService) lineItem(v *model.ProductVariant, quantity int) cart.LineItem {
	keys := make([]string, 0, len(v.Product.Images)+1)
	if v.ImageKey != "" {
		keys = append(keys, v.ImageKey)
	}
	keys = append(keys, imageKeys(&v.Product)...)

	return cart.LineItem{
		CatalogItemID: idString(v.ProductID),
		VariantID:     idString(v.ID),
		Name:          variantName(v),
		UnitPrice:     v.Product.Price + v.AdditionalPrice,
		Quantity:      quantity,
		Images:        s.urls.URLs(keys),
	}
}

// variantName is the product name followed by the option values in group
// display order, e.g. "Twist Ring (Gold / 11)".
func variantName(v *model.ProductVariant) string {
	if len(v.Options) == 0 {
		return v.Product.Name
	}
	options := append([]model.OptionValue(nil), v.Options...)
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Group.Position != options[j].Group.Position {
			return options[i].Group.Position < options[j].Group.Position
		}
		return options[i].OptionGroupID < options[j].OptionGroupID
	})
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.Name)
	}
	return fmt.Sprintf("%s (%s)", v.Product.Name, strings.Join(names, " / "))
}

// UpdateItem sets the quantity of a line. A positive quantity is checked
// against the variant's stock; zero or less removes the line.
func (s *cartService) UpdateItem(ctx context.Context, sessionID, variantID string, quantity int) (cart.Cart, error) {
	if quantity > 0 {
		current := s.store(ctx, sessionID).State()
		id, ok := parseID(variantID)
		if !ok || current.Find(variantID) < 0 {
			return current, ErrCartItemNotFound
		}
		v, err := s.variantRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return current, ErrVariantNotFound
			}
			return current, err
		}
		if quantity > v.StockQuantity {
			logger.FromContext(ctx).Warn("Cannot update cart: insufficient stock", map[string]interface{}{
				"cart_session": sessionID,
				"variant_id":   v.ID,
				"requested":    quantity,
				"available":    v.StockQuantity,
			})
			return current, ErrInsufficientStock
		}
	}
	return s.dispatch(ctx, sessionID, cart.Update{VariantID: variantID, Quantity: quantity})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, variantID string) (cart.Cart, error) {
	return s.dispatch(ctx, sessionID, cart.Remove{VariantID: variantID})
}

func (s *cartService) ClearCart(ctx context.Context, sessionID string) (cart.Cart, error) {
	return s.dispatch(ctx, sessionID, cart.Clear{})
}

func (s *cartService) RemoveOrdered(ctx context.Context, sessionID string, ordered []cart.LineItem) (cart.Cart, error) {
	st := s.store(ctx, sessionID)
	for _, li := range ordered {
		current := st.State()
		idx := current.Find(li.VariantID)
		if idx < 0 {
			continue
		}
		remaining := current.Items[idx].Quantity - li.Quantity
		if _, err := s.dispatch(ctx, sessionID, cart.Update{VariantID: li.VariantID, Quantity: remaining}); err != nil && !errors.Is(err, ErrCartItemNotFound) {
			return st.State(), err
		}
	}
	return st.State(), nil
}

func (s *cartService) ResetCart(ctx context.Context, sessionID string) (cart.Cart, error) {
	return s.dispatch(ctx, sessionID, cart.Reset{})
}

// SaveShippingAddress merges patch into the cart's address. Once the merged
// address is complete it has to pass the shipping service's validation,
// whose normalized form is stored instead.
func (s *cartService) SaveShippingAddress(ctx context.Context, sessionID string, patch cart.AddressPatch) (cart.Cart, error) {
	current := s.store(ctx, sessionID).State()
	var merged cart.Address
	if current.ShippingAddress != nil {
		merged = *current.ShippingAddress
	}
	merged = merged.Merge(patch)

	if s.shipping != nil && merged.Complete() {
		validation, err := s.shipping.ValidateAddress(ctx, toShippingAddress(merged))
		if err != nil {
			if errors.Is(err, shipping.ErrInvalidAddress) {
				return current, ErrAddressUndeliverable
			}
			logger.FromContext(ctx).Error("Address validation failed", err, map[string]interface{}{
				"cart_session": sessionID,
			})
			return current, upstreamError(err)
		}
		if !validation.Valid {
			logger.FromContext(ctx).Warn("Shipping address rejected", map[string]interface{}{
				"cart_session": sessionID,
				"messages":     validation.Messages,
			})
			return current, ErrAddressUndeliverable
		}
		if validation.Normalized != nil {
			patch = fullPatch(fromShippingAddress(*validation.Normalized))
		}
	}

	return s.dispatch(ctx, sessionID, cart.SaveShippingAddress{Patch: patch})
}

// SavePaymentMethod tokenizes card with the payment service and keeps only
// the token.
func (s *cartService) SavePaymentMethod(ctx context.Context, sessionID, customerID string, card payment.Card) (cart.Cart, error) {
	tok, err := s.payments.Tokenize(ctx, payment.TokenizeRequest{CustomerID: customerID, Card: card})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to tokenize payment method", err, map[string]interface{}{
			"cart_session": sessionID,
		})
		return s.store(ctx, sessionID).State(), upstreamError(err)
	}

	logger.FromContext(ctx).Info("Payment method saved", map[string]interface{}{
		"cart_session": sessionID,
		"brand":        tok.Brand,
		"last4":        tok.Last4,
	})
	return s.dispatch(ctx, sessionID, cart.SavePaymentMethod{Token: tok.Token})
}

func (s *cartService) SetPopUp(ctx context.Context, sessionID string, visible bool) (cart.Cart, error) {
	return s.dispatch(ctx, sessionID, cart.PopUp{Visible: visible})
}

func (s *cartService) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func upstreamError(err error) error {
	return fmt.Errorf("%w: %w", ErrExternalService, err)
}

func toShippingAddress(a cart.Address) shipping.Address {
	return shipping.Address{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func fromShippingAddress(a shipping.Address) cart.Address {
	return cart.Address{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func fullPatch(a cart.Address) cart.AddressPatch {
	return cart.AddressPatch{
		Recipient:  &a.Recipient,
		Phone:      &a.Phone,
		Line1:      &a.Line1,
		Line2:      &a.Line2,
		City:       &a.City,
		State:      &a.State,
		PostalCode: &a.PostalCode,
		Country:    &a.Country,
	}
}
