package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Gateway is the slice of the payment provider this service consumes.
// Injected so tests run against fakes.
type Gateway interface {
	// CreateOrder reserves amountPaise with the gateway and returns its
	// order id.
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error)
	// Refund reverses a captured payment in full.
	Refund(ctx context.Context, paymentID string, amountPaise int64, notes map[string]string) (map[string]any, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) Gateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// The SDK does not take a context, so calls run on a goroutine and the
// select enforces the caller's deadline.
func (g *razorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error) {
	type result struct {
		id  string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := g.client.Order.Create(map[string]interface{}{
			"amount":   amountPaise,
			"currency": currency,
			"receipt":  receipt,
		}, nil)
		if err != nil {
			ch <- result{err: fmt.Errorf("razorpay order create: %w", err)}
			return
		}
		id, _ := body["id"].(string)
		if id == "" {
			ch <- result{err: fmt.Errorf("razorpay order create: missing id in response")}
			return
		}
		ch <- result{id: id}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.id, r.err
	}
}

func (g *razorpayGateway) Refund(ctx context.Context, paymentID string, amountPaise int64, notes map[string]string) (map[string]any, error) {
	type result struct {
		body map[string]any
		err  error
	}
	data := map[string]interface{}{}
	if len(notes) > 0 {
		n := map[string]interface{}{}
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}
	ch := make(chan result, 1)
	go func() {
		body, err := g.client.Payment.Refund(paymentID, int(amountPaise), data, nil)
		if err != nil {
			ch <- result{err: fmt.Errorf("razorpay refund: %w", err)}
			return
		}
		ch <- result{body: body}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.body, r.err
	}
}
