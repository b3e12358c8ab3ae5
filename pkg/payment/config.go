package payment

import "time"

// Config represents the configuration for the payment gateway client
type Config struct {
	// SecretKey authenticates the merchant against the gateway
	SecretKey string

	// BaseURL is the gateway API base URL
	BaseURL string

	// Timeout bounds every gateway call; zero means 30s
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" || c.BaseURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
