package payment

import "time"

// Card is a raw payment instrument. It is only ever sent to the gateway;
// the storefront keeps the returned token.
type Card struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
	Holder   string `json:"holder,omitempty"`
}

type TokenizeRequest struct {
	CustomerID string `json:"customer_id"`
	Card       Card   `json:"card"`
}

type TokenizeResponse struct {
	Token string `json:"token"`
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

type ChargeRequest struct {
	CustomerID     string `json:"customer_id"`
	PaymentMethod  string `json:"payment_method"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"-"`
}

type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
)

type ChargeResponse struct {
	ID         string       `json:"id"`
	Status     ChargeStatus `json:"status"`
	Amount     int64        `json:"amount"`
	Currency   string       `json:"currency"`
	ApprovedAt *time.Time   `json:"approved_at,omitempty"`
}

// ErrorResponse is the gateway's error envelope
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
