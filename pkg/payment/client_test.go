package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{SecretKey: "sk_test", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKeyAndURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewClient(Config{SecretKey: "sk"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_Tokenize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_methods", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var req TokenizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cus_1", req.CustomerID)
		assert.Equal(t, "4242424242424242", req.Card.Number)

		json.NewEncoder(w).Encode(TokenizeResponse{Token: "pm_123", Brand: "visa", Last4: "4242"})
	})

	out, err := c.Tokenize(context.Background(), TokenizeRequest{
		CustomerID: "cus_1",
		Card:       Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pm_123", out.Token)
	assert.Equal(t, "4242", out.Last4)
}

func TestClient_TokenizeRejectsBadCardLocally(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	_, err := c.Tokenize(context.Background(), TokenizeRequest{Card: Card{Number: "4242", ExpMonth: 13, ExpYear: 2030}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_Charge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "order-key", r.Header.Get("Idempotency-Key"))

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(253000), req.Amount)
		assert.Equal(t, "KRW", req.Currency)

		json.NewEncoder(w).Encode(ChargeResponse{ID: "ch_1", Status: ChargeSucceeded, Amount: req.Amount, Currency: req.Currency})
	})

	out, err := c.Charge(context.Background(), ChargeRequest{
		CustomerID:     "cus_1",
		PaymentMethod:  "pm_123",
		Amount:         253000,
		IdempotencyKey: "order-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_1", out.ID)
}

func TestClient_ChargeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		wantErr error
	}{
		{name: "Declined", status: http.StatusPaymentRequired, body: ErrorResponse{Code: "card_declined"}, wantErr: ErrCardDeclined},
		{name: "Bad key", status: http.StatusUnauthorized, body: ErrorResponse{Code: "unauthorized"}, wantErr: ErrUnauthorized},
		{name: "Upstream outage", status: http.StatusBadGateway, body: "oops", wantErr: ErrPaymentFailed},
		{name: "Failed status", status: http.StatusOK, body: ChargeResponse{ID: "ch_2", Status: ChargeFailed}, wantErr: ErrPaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			})

			out, err := c.Charge(context.Background(), ChargeRequest{PaymentMethod: "pm_1", Amount: 1000})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, out)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	c, err := NewClient(Config{SecretKey: "sk", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.Charge(context.Background(), ChargeRequest{PaymentMethod: "pm_1", Amount: 1000})
	assert.ErrorIs(t, err, ErrNetworkError)
}
