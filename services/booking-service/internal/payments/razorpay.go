package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway creates orders against the Razorpay Orders API. Amounts are
// converted to the currency's smallest unit (paise) on the wire.
type RazorpayGateway struct {
	client *razorpay.Client
	keyID  string
}

func NewRazorpayGateway(keyID, keySecret string, timeoutSeconds int) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	if timeoutSeconds > 0 {
		// razorpay-go takes the request timeout in seconds as an int16.
		client.SetTimeout(int16(timeoutSeconds))
	}
	return &RazorpayGateway{client: client, keyID: keyID}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	data := map[string]interface{}{
		"amount":   amount * 100,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return Order{}, fmt.Errorf("%w: order response missing id", ErrGateway)
	}
	return Order{ID: id, Amount: amount, Currency: currency}, nil
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}
