// Package shipping is a client for the shipping-rate service.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

var (
	ErrInvalidConfig  = errors.New("invalid shipping config")
	ErrInvalidAddress = errors.New("address is not deliverable")
	ErrNoRates        = errors.New("no shipping rates available")
	ErrUpstream       = errors.New("shipping service error")
	ErrNetworkError   = errors.New("network error")
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Address struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Parcel summarizes what is being shipped.
type Parcel struct {
	ItemCount int     `json:"item_count"`
	WeightG   float64 `json:"weight_g"`
	Value     int64   `json:"value"`
}

type Rate struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	Service       string `json:"service"`
	Amount        int64  `json:"amount"`
	EstimatedDays int    `json:"estimated_days"`
}

type Validation struct {
	Valid      bool     `json:"valid"`
	Normalized *Address `json:"normalized,omitempty"`
	Messages   []string `json:"messages,omitempty"`
}

type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrInvalidConfig
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{config: config, httpClient: &http.Client{Timeout: timeout}}, nil
}

// ValidateAddress asks the shipping service whether it can deliver to addr.
// An undeliverable address is reported as ErrInvalidAddress.
func (c *Client) ValidateAddress(ctx context.Context, addr Address) (*Validation, error) {
	var out Validation
	if err := c.post(ctx, "addresses/validate", addr, &out); err != nil {
		return nil, err
	}
	if !out.Valid {
		return &out, fmt.Errorf("%w: %s", ErrInvalidAddress, strings.Join(out.Messages, "; "))
	}
	return &out, nil
}

// Rates quotes the delivery options for a parcel, cheapest first as returned.
func (c *Client) Rates(ctx context.Context, addr Address, parcel Parcel) ([]Rate, error) {
	payload := struct {
		Destination Address `json:"destination"`
		Parcel      Parcel  `json:"parcel"`
	}{addr, parcel}

	var out struct {
		Rates []Rate `json:"rates"`
	}
	if err := c.post(ctx, "rates", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Rates) == 0 {
		return nil, ErrNoRates
	}
	return out.Rates, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidAddress, strings.TrimSpace(string(respBody)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		logger.Warn("Shipping service returned error", map[string]interface{}{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		})
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
