package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

// Client talks to the payment gateway
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new gateway client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Tokenize exchanges a raw card for a reusable payment-method token
func (c *Client) Tokenize(ctx context.Context, req TokenizeRequest) (*TokenizeResponse, error) {
	if req.Card.Number == "" || req.Card.ExpMonth < 1 || req.Card.ExpMonth > 12 || req.Card.ExpYear == 0 {
		return nil, ErrInvalidRequest
	}

	var out TokenizeResponse
	if err := c.do(ctx, "payment_methods", "", req, &out); err != nil {
		return nil, fmt.Errorf("failed to tokenize payment method: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrPaymentFailed)
	}
	return &out, nil
}

// Charge captures amount from a tokenized payment method
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if req.PaymentMethod == "" || req.Amount <= 0 {
		return nil, ErrInvalidRequest
	}
	if req.Currency == "" {
		req.Currency = "KRW"
	}

	var out ChargeResponse
	if err := c.do(ctx, "charges", req.IdempotencyKey, req, &out); err != nil {
		return nil, fmt.Errorf("failed to charge: %w", err)
	}
	if out.Status != ChargeSucceeded {
		return nil, fmt.Errorf("%w: charge %s is %s", ErrPaymentFailed, out.ID, out.Status)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, endpoint, idempotencyKey string, payload, out interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint)
	logger.Debug("Payment gateway request", map[string]interface{}{
		"url": url,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)
		msg := fmt.Sprintf("status %d, code %q: %s", resp.StatusCode, errResp.Code, errResp.Message)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrCardDeclined, msg)
		default:
			return fmt.Errorf("%w: %s", ErrPaymentFailed, msg)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
