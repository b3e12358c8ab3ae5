// Package cart holds the shopping cart state machine. A Store owns one Cart,
// mutates it only through Commands and writes every committed change to a
// Storage under StorageKey.
package cart

// StorageKey is the key the cart document is read from and written to.
const StorageKey = "cart"

// LineItem is one purchasable variant in the cart.
type LineItem struct {
	CatalogItemID string   `json:"catalog_item_id"`
	VariantID     string   `json:"variant_id"`
	Name          string   `json:"name"`
	UnitPrice     int64    `json:"unit_price"` // minor currency units
	Quantity      int      `json:"quantity"`
	Images        []string `json:"images,omitempty"`
}

// Total returns UnitPrice * Quantity.
func (li LineItem) Total() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

type Address struct {
	Recipient  string `json:"recipient,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// AddressPatch is a partial address. Nil fields leave the current value alone.
type AddressPatch struct {
	Recipient  *string `json:"recipient,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Line1      *string `json:"line1,omitempty"`
	Line2      *string `json:"line2,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    *string `json:"country,omitempty"`
}

// Merge applies the non-nil fields of p on top of a.
func (a Address) Merge(p AddressPatch) Address {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Recipient, p.Recipient)
	set(&a.Phone, p.Phone)
	set(&a.Line1, p.Line1)
	set(&a.Line2, p.Line2)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.PostalCode, p.PostalCode)
	set(&a.Country, p.Country)
	return a
}

// Complete reports whether the address carries enough to ship to.
func (a Address) Complete() bool {
	return a.Recipient != "" && a.Line1 != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

// Cart is the full cart state. PopUp is UI state and is never persisted.
type Cart struct {
	Items           []LineItem `json:"items"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	PopUp           bool       `json:"pop_up"`
}

// Empty returns the canonical empty cart.
func Empty() Cart {
	return Cart{Items: []LineItem{}}
}

// Subtotal sums the line totals.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Total()
	}
	return total
}

// ItemCount sums the quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Find returns the index of the item with the given variant id, or -1.
func (c Cart) Find(variantID string) int {
	for i, item := range c.Items {
		if item.VariantID == variantID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	out := Cart{
		Items:         make([]LineItem, len(c.Items)),
		PaymentMethod: c.PaymentMethod,
		PopUp:         c.PopUp,
	}
	for i, item := range c.Items {
		item.Images = append([]string(nil), item.Images...)
		out.Items[i] = item
	}
	if c.ShippingAddress != nil {
		addr := *c.ShippingAddress
		out.ShippingAddress = &addr
	}
	return out
}

// document is the persisted form of a Cart.
type document struct {
	Items           []LineItem `json:"items"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
}

func (c Cart) document() document {
	return document{
		Items:           c.Items,
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
	}
}

func (d document) cart() Cart {
	c := Cart{
		Items:           d.Items,
		ShippingAddress: d.ShippingAddress,
		PaymentMethod:   d.PaymentMethod,
	}
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	// stored documents are untrusted: drop bad quantities, fold duplicate variants
	kept := make([]LineItem, 0, len(c.Items))
	seen := make(map[string]int, len(c.Items))
	for _, item := range c.Items {
		if item.Quantity < 1 || item.VariantID == "" {
			continue
		}
		if i, ok := seen[item.VariantID]; ok {
			kept[i].Quantity += item.Quantity
			continue
		}
		seen[item.VariantID] = len(kept)
		kept = append(kept, item)
	}
	c.Items = kept
	return c
}
