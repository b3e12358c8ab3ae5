package cart

import "math"

// Status tags the outcome of a dispatched command.
type Status string

const (
	StatusOK       Status = "ok"
	StatusNotFound Status = "not_found"
	StatusInvalid  Status = "invalid"
)

// Result is returned by Store.Dispatch. Cart is the state after the command.
type Result struct {
	Status Status
	Cart   Cart
}

// OK reports whether the command changed (or confirmed) state.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Command is one of the fixed set of cart mutations.
type Command interface {
	// Name is used for logging.
	Name() string
	apply(c Cart) (Cart, Status)
	persistent() bool
}

// Add appends Item, or sums its quantity into the line with the same variant id.
type Add struct {
	Item LineItem
}

func (Add) Name() string     { return "ADD" }
func (Add) persistent() bool { return true }

func (cmd Add) apply(c Cart) (Cart, Status) {
	if cmd.Item.VariantID == "" || cmd.Item.Quantity < 1 {
		return c, StatusInvalid
	}
	if i := c.Find(cmd.Item.VariantID); i >= 0 {
		if c.Items[i].Quantity > math.MaxInt-cmd.Item.Quantity {
			return c, StatusInvalid
		}
		c.Items[i].Quantity += cmd.Item.Quantity
		return c, StatusOK
	}
	item := cmd.Item
	item.Images = append([]string(nil), item.Images...)
	c.Items = append(c.Items, item)
	return c, StatusOK
}

// Update sets the quantity of an existing line. Quantity <= 0 removes it.
type Update struct {
	VariantID string
	Quantity  int
}

func (Update) Name() string     { return "UPDATE" }
func (Update) persistent() bool { return true }

func (cmd Update) apply(c Cart) (Cart, Status) {
	if cmd.Quantity <= 0 {
		return Remove{VariantID: cmd.VariantID}.apply(c)
	}
	i := c.Find(cmd.VariantID)
	if i < 0 {
		return c, StatusNotFound
	}
	c.Items[i].Quantity = cmd.Quantity
	return c, StatusOK
}

// Remove deletes the line with the given variant id.
type Remove struct {
	VariantID string
}

func (Remove) Name() string     { return "REMOVE" }
func (Remove) persistent() bool { return true }

func (cmd Remove) apply(c Cart) (Cart, Status) {
	i := c.Find(cmd.VariantID)
	if i < 0 {
		return c, StatusNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return c, StatusOK
}

// Clear empties the line items and keeps address and payment method.
type Clear struct{}

func (Clear) Name() string     { return "CLEAR" }
func (Clear) persistent() bool { return true }

func (Clear) apply(c Cart) (Cart, Status) {
	c.Items = []LineItem{}
	return c, StatusOK
}

// Reset restores the canonical empty cart.
type Reset struct{}

func (Reset) Name() string     { return "RESET" }
func (Reset) persistent() bool { return true }

func (Reset) apply(Cart) (Cart, Status) {
	return Empty(), StatusOK
}

// SaveShippingAddress shallow-merges Patch into the current address.
type SaveShippingAddress struct {
	Patch AddressPatch
}

func (SaveShippingAddress) Name() string     { return "SAVE_SHIPPING_ADDRESS" }
func (SaveShippingAddress) persistent() bool { return true }

func (cmd SaveShippingAddress) apply(c Cart) (Cart, Status) {
	var current Address
	if c.ShippingAddress != nil {
		current = *c.ShippingAddress
	}
	merged := current.Merge(cmd.Patch)
	c.ShippingAddress = &merged
	return c, StatusOK
}

// SavePaymentMethod replaces the payment method token.
type SavePaymentMethod struct {
	Token string
}

func (SavePaymentMethod) Name() string     { return "SAVE_PAYMENT_METHOD" }
func (SavePaymentMethod) persistent() bool { return true }

func (cmd SavePaymentMethod) apply(c Cart) (Cart, Status) {
	c.PaymentMethod = cmd.Token
	return c, StatusOK
}

// PopUp toggles the ephemeral UI flag. It is not written to storage.
type PopUp struct {
	Visible bool
}

func (PopUp) Name() string     { return "POP_UP" }
func (PopUp) persistent() bool { return false }

func (cmd PopUp) apply(c Cart) (Cart, Status) {
	c.PopUp = cmd.Visible
	return c, StatusOK
}
