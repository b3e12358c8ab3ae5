package service

import (
	"context"
	"errors"

	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
)

// ErrExternalService wraps failures of the payment and shipping services.
// They are reported to the caller and never retried.
var ErrExternalService = errors.New("external service unavailable")

type PaymentGateway interface {
	Tokenize(ctx context.Context, req payment.TokenizeRequest) (*payment.TokenizeResponse, error)
	Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error)
}

type ShippingGateway interface {
	ValidateAddress(ctx context.Context, addr shipping.Address) (*shipping.Validation, error)
	Rates(ctx context.Context, addr shipping.Address, parcel shipping.Parcel) ([]shipping.Rate, error)
}
