package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/internal/events"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/lookup"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
	"gorm.io/gorm"
)

const currencyKRW = "KRW"

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrShippingAddressRequired = errors.New("shipping address is incomplete")
	ErrPaymentMethodRequired   = errors.New("payment method is required")
	ErrShippingRateNotFound    = errors.New("shipping rate not found")
	ErrPaymentDeclined         = errors.New("payment was not approved")
	ErrOrderNotFound           = errors.New("order not found")
)

// CheckoutRequest identifies the cart to check out. User is nil for guests.
type CheckoutRequest struct {
	SessionID      string
	User           *model.User
	ShippingRateID string
}

type CheckoutService interface {
	// QuoteShipping fetches rates for the session's cart. A newer quote for
	// the same session cancels the one in flight.
	QuoteShipping(ctx context.Context, sessionID string) ([]shipping.Rate, error)
	// Checkout reserves stock for the cart's lines, charges them and turns
	// them into an order. On any failure the cart is left as it was.
	// Checkouts of the same session run one at a time.
	Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrder(userID, orderID uint) (*model.Order, error)
}

type checkoutService struct {
	carts       CartService
	orderRepo   repository.OrderRepository
	variantRepo repository.VariantRepository
	payments    PaymentGateway
	shipping    ShippingGateway
	publisher   events.Publisher
	db          *gorm.DB
	quotes      lookup.Group
	sessions    sessionLocks
}

// sessionLocks hands out one mutex per cart session.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(sessionID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sessionLock{}
		l.locks[sessionID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

func NewCheckoutService(
	carts CartService,
	orderRepo repository.OrderRepository,
	variantRepo repository.VariantRepository,
	payments PaymentGateway,
	shippingGateway ShippingGateway,
	publisher events.Publisher,
	db *gorm.DB,
) CheckoutService {
	return &checkoutService{
		carts:       carts,
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		payments:    payments,
		shipping:    shippingGateway,
		publisher:   publisher,
		db:          db,
	}
}

func (s *checkoutService) QuoteShipping(ctx context.Context, sessionID string) ([]shipping.Rate, error) {
	c, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireShippable(c); err != nil {
		return nil, err
	}

	return lookup.Do(ctx, &s.quotes, sessionID, func(ctx context.Context) ([]shipping.Rate, error) {
		return s.rates(ctx, c)
	})
}

func requireShippable(c cart.Cart) error {
	if len(c.Items) == 0 {
		return ErrEmptyCart
	}
	if c.ShippingAddress == nil || !c.ShippingAddress.Complete() {
		return ErrShippingAddressRequired
	}
	return nil
}

func (s *checkoutService) rates(ctx context.Context, c cart.Cart) ([]shipping.Rate, error) {
	parcel := shipping.Parcel{ItemCount: c.ItemCount(), Value: c.Subtotal()}
	rates, err := s.shipping.Rates(ctx, toShippingAddress(*c.ShippingAddress), parcel)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrInvalidAddress):
			return nil, ErrAddressUndeliverable
		case errors.Is(err, shipping.ErrNoRates):
			return nil, ErrShippingRateNotFound
		case errors.Is(err, context.Canceled):
			return nil, err
		}
		return nil, upstreamError(err)
	}
	if len(rates) == 0 {
		return nil, ErrShippingRateNotFound
	}
	return rates, nil
}

// pickRate returns the rate with id, or the cheapest one when id is empty.
func pickRate(rates []shipping.Rate, id string) (shipping.Rate, bool) {
	if id == "" {
		best := rates[0]
		for _, r := range rates[1:] {
			if r.Amount < best.Amount {
				best = r
			}
		}
		return best, true
	}
	for _, r := range rates {
		if r.ID == id {
			return r, true
		}
	}
	return shipping.Rate{}, false
}

func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	log := logger.FromContext(ctx).WithContext(map[string]interface{}{
		"cart_session": req.SessionID,
	})

	// one checkout per session at a time
	unlock := s.sessions.lock(req.SessionID)
	defer unlock()

	c, err := s.carts.GetCart(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := requireShippable(c); err != nil {
		log.Warn("Checkout rejected", map[string]interface{}{"reason": err.Error()})
		return nil, err
	}
	if c.PaymentMethod == "" {
		return nil, ErrPaymentMethodRequired
	}

	items, err := s.orderItems(c)
	if err != nil {
		log.Warn("Checkout rejected", map[string]interface{}{"reason": err.Error()})
		return nil, err
	}

	rates, err := s.rates(ctx, c)
	if err != nil {
		return nil, err
	}
	rate, ok := pickRate(rates, req.ShippingRateID)
	if !ok {
		return nil, ErrShippingRateNotFound
	}

	subtotal := c.Subtotal()
	total := subtotal + rate.Amount

	var customerID string
	var userID *uint
	if req.User != nil {
		customerID = req.User.CustomerID
		userID = &req.User.ID
	}

	address, err := json.Marshal(c.ShippingAddress)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:          userID,
		CartSessionID:   req.SessionID,
		Subtotal:        subtotal,
		ShippingFee:     rate.Amount,
		TotalAmount:     total,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingRateID:  rate.ID,
		ShippingAddress: string(address),
		OrderItems:      items,
	}

	// stock is reserved by the pending order before any money moves
	if err := s.reserve(order); err != nil {
		log.Warn("Failed to reserve stock", map[string]interface{}{"reason": err.Error()})
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		return nil, err
	}

	log.Info("Charging cart", map[string]interface{}{
		"order_id":     order.ID,
		"subtotal":     subtotal,
		"shipping_fee": rate.Amount,
		"total":        total,
	})

	charge, err := s.payments.Charge(ctx, payment.ChargeRequest{
		CustomerID:     customerID,
		PaymentMethod:  c.PaymentMethod,
		Amount:         total,
		Currency:       currencyKRW,
		Description:    fmt.Sprintf("storefront order (%d items)", c.ItemCount()),
		IdempotencyKey: checkoutKey(req.SessionID, c, rate),
	})
	if err == nil && charge.Status != payment.ChargeSucceeded {
		log.Warn("Payment charge not approved", map[string]interface{}{
			"charge_id": charge.ID,
			"status":    charge.Status,
		})
		err = ErrPaymentDeclined
	}
	if err != nil {
		log.Error("Payment charge failed", err, map[string]interface{}{"order_id": order.ID})
		s.release(ctx, order)
		switch {
		case errors.Is(err, ErrPaymentDeclined):
			return nil, err
		case errors.Is(err, payment.ErrCardDeclined), errors.Is(err, payment.ErrPaymentFailed):
			return nil, fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
		}
		return nil, upstreamError(err)
	}

	approvedAt := charge.ApprovedAt
	if approvedAt == nil {
		now := time.Now()
		approvedAt = &now
	}
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusCompleted
	order.PaymentChargeID = charge.ID
	order.PaymentApprovedAt = approvedAt

	if err := s.orderRepo.UpdatePayment(order); err != nil {
		// the charge went through and stock stays reserved; support settles it by charge id
		log.Error("Failed to confirm order after charge", err, map[string]interface{}{
			"order_id":  order.ID,
			"charge_id": charge.ID,
			"total":     total,
		})
		return nil, err
	}

	s.publish(ctx, order, customerID, c)

	if _, err := s.carts.RemoveOrdered(ctx, req.SessionID, c.Items); err != nil {
		log.Error("Failed to remove ordered items from cart", err, map[string]interface{}{
			"order_id": order.ID,
		})
	}

	log.Info("Checkout completed", map[string]interface{}{
		"order_id":  order.ID,
		"charge_id": charge.ID,
		"total":     total,
	})
	return order, nil
}

// checkoutKey is the charge idempotency key. Submitting the same cart of the
// same session again yields the same key, so the gateway charges it once.
func checkoutKey(sessionID string, c cart.Cart, rate shipping.Rate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "checkout:%s:%s:%s:%d", sessionID, c.PaymentMethod, rate.ID, rate.Amount)
	for _, li := range c.Items {
		fmt.Fprintf(&b, ":%s*%d@%d", li.VariantID, li.Quantity, li.UnitPrice)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String()
}

// orderItems converts cart lines and checks them against current stock.
func (s *checkoutService) orderItems(c cart.Cart) ([]model.OrderItem, error) {
	ids := make([]uint, 0, len(c.Items))
	items := make([]model.OrderItem, 0, len(c.Items))
	for _, li := range c.Items {
		variantID, ok := parseID(li.VariantID)
		if !ok {
			return nil, ErrVariantNotFound
		}
		productID, _ := parseID(li.CatalogItemID)
		ids = append(ids, variantID)
		items = append(items, model.OrderItem{
			ProductID: productID,
			VariantID: variantID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			Price:     li.UnitPrice,
		})
	}

	stock, err := s.variantRepo.StockByIDs(ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		onHand, ok := stock[item.VariantID]
		if !ok {
			return nil, ErrVariantNotFound
		}
		if onHand < item.Quantity {
			return nil, ErrInsufficientStock
		}
	}
	return items, nil
}

// reserve writes the pending order and takes its quantities off stock in
// one transaction.
func (s *checkoutService) reserve(order *model.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		if err := repo.Create(order); err != nil {
			return err
		}
		for _, item := range order.OrderItems {
			if err := repo.DecrementStock(item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// release returns the reserved stock of an unpaid order and retires it.
func (s *checkoutService) release(ctx context.Context, order *model.Order) {
	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = model.PaymentStatusFailed

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		for _, item := range order.OrderItems {
			if err := repo.IncrementStock(item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		if err := repo.UpdatePayment(order); err != nil {
			return err
		}
		return repo.Delete(order.ID)
	})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to release reserved stock", err, map[string]interface{}{
			"order_id": order.ID,
		})
	}
}

func (s *checkoutService) publish(ctx context.Context, order *model.Order, customerID string, c cart.Cart) {
	if s.publisher == nil {
		return
	}

	ev := events.CartCheckedOut{
		OrderID:       order.ID,
		CartSessionID: order.CartSessionID,
		CustomerID:    customerID,
		Subtotal:      order.Subtotal,
		ShippingFee:   order.ShippingFee,
		TotalAmount:   order.TotalAmount,
		Currency:      currencyKRW,
	}
	for _, li := range c.Items {
		ev.Items = append(ev.Items, events.CartItemEvent{
			CatalogItemID: li.CatalogItemID,
			VariantID:     li.VariantID,
			Quantity:      li.Quantity,
			UnitPrice:     li.UnitPrice,
		})
	}

	if err := s.publisher.PublishCartCheckedOut(ctx, ev); err != nil {
		logger.FromContext(ctx).Error("Failed to publish checkout event", err, map[string]interface{}{
			"order_id": order.ID,
		})
	}
}

func (s *checkoutService) GetUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(userID)
}

func (s *checkoutService) GetOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
