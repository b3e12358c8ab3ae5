package events

import "time"

type CartCheckedOut struct {
	EventType     string          `json:"eventType"`
	Source        string          `json:"source"`
	OrderID       uint            `json:"orderId"`
	CartSessionID string          `json:"cartSessionId"`
	CustomerID    string          `json:"customerId,omitempty"`
	Items         []CartItemEvent `json:"items"`
	Subtotal      int64           `json:"subtotal"`
	ShippingFee   int64           `json:"shippingFee"`
	TotalAmount   int64           `json:"totalAmount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
}

type CartItemEvent struct {
	CatalogItemID string `json:"catalogItemId"`
	VariantID     string `json:"variantId"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unitPrice"`
}
