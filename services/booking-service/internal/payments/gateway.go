package payments

import (
	"context"
	"errors"
)

// ErrGateway wraps provider failures so handlers can map them to a
// dependent-service error class distinct from caller mistakes.
var ErrGateway = errors.New("payment gateway error")

// Order is a gateway-side reservation of an amount, created before capture.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway creates payment orders with a hosted provider. Order creation is a
// remote call and must be treated as fallible; signature verification is a
// local computation (see VerifySignature) and is deliberately not part of
// this interface.
type Gateway interface {
	// CreateOrder reserves amount (major currency units) under the given
	// idempotency receipt and returns the provider order id.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error)
	// KeyID is the public key identifier clients need to open the
	// provider's checkout for the returned order.
	KeyID() string
}
