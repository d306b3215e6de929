package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// StripeProcessor charges online payments through Stripe payment intents.
// Calls go through a circuit breaker so a wedged provider fails fast instead
// of pinning checkout goroutines on timeouts.
type StripeProcessor struct {
	breaker *gobreaker.CircuitBreaker[*stripe.PaymentIntent]
}

func NewStripeProcessor(apiKey string) *StripeProcessor {
	stripe.Key = apiKey

	settings := gobreaker.Settings{
		Name:    "stripe",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &StripeProcessor{
		breaker: gobreaker.NewCircuitBreaker[*stripe.PaymentIntent](settings),
	}
}

func (p *StripeProcessor) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(string(stripe.CurrencyINR)),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"checkout_id": req.CheckoutID,
			"user_id":     req.UserID,
		},
	}
	params.Context = ctx

	intent, err := p.breaker.Execute(func() (*stripe.PaymentIntent, error) {
		return paymentintent.New(params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, stripeErr.Msg)
		}
		return nil, fmt.Errorf("stripe charge failed: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: intent status %s", ErrPaymentDeclined, intent.Status)
	}

	return &Result{
		PaymentID: intent.ID,
		Captured:  true,
	}, nil
}
