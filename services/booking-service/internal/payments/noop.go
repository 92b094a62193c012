package payments

import (
	"context"

	"github.com/google/uuid"
)

// NoopGateway issues local order ids without touching a provider. Used in
// dev/test deployments where no Razorpay credentials are configured; the
// signature check still runs against the configured secret.
type NoopGateway struct {
	keyID string
}

func NewNoopGateway(keyID string) *NoopGateway {
	if keyID == "" {
		keyID = "noop"
	}
	return &NoopGateway{keyID: keyID}
}

func (g *NoopGateway) CreateOrder(_ context.Context, amount int64, currency, _ string) (Order, error) {
	return Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (g *NoopGateway) KeyID() string {
	return g.keyID
}
