package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/onemedi/onemedi-api/internal/domain"
)

var (
	ErrPaymentDeclined    = errors.New("payment was declined")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrPaymentUnavailable = errors.New("payment provider unavailable")
)

type ChargeRequest struct {
	CheckoutID string
	UserID     string
	Amount     int64 // paisa
	Currency   string
}

type Result struct {
	PaymentID string
	Captured  bool
}

// Processor charges a single checkout. Implementations never retry on their
// own; a failed charge is reported back and the checkout returns to
// selection.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}

// Router picks the processor for a payment method.
type Router struct {
	cod    Processor
	online Processor
}

func NewRouter(cod, online Processor) *Router {
	return &Router{cod: cod, online: online}
}

func (r *Router) Charge(ctx context.Context, method domain.PaymentMethod, req ChargeRequest) (*Result, error) {
	switch method {
	case domain.PaymentMethodCOD:
		return r.cod.Charge(ctx, req)
	case domain.PaymentMethodOnline:
		return r.online.Charge(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
}

// CODProcessor records a cash-on-delivery commitment. Nothing is captured at
// order time; the payment id is a local reference.
type CODProcessor struct{}

func NewCODProcessor() *CODProcessor { return &CODProcessor{} }

func (p *CODProcessor) Charge(_ context.Context, req ChargeRequest) (*Result, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrPaymentDeclined)
	}
	return &Result{
		PaymentID: "cod-" + uuid.NewString(),
		Captured:  false,
	}, nil
}
