package payment

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPaymentFailed is returned when the gateway rejects the operation
	ErrPaymentFailed = errors.New("payment failed")

	// ErrCardDeclined is returned when the issuer declines the instrument
	ErrCardDeclined = errors.New("card declined")

	// ErrNetworkError is returned when the gateway cannot be reached
	ErrNetworkError = errors.New("network error")

	// ErrUnauthorized is returned when the secret key is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid secret key")
)
