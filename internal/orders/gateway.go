package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/skundu/blood-market/internal/domain"
)

// Capture is the gateway's answer to a successful payment capture.
type Capture struct {
	TxnRef string
	Method domain.PaymentMethod
}

// Gateway isolates payment capture behind an explicit interface so a real
// processor can replace the simulation without touching the order state
// machine.
type Gateway interface {
	Authorize(ctx context.Context, orderID, amount int64) (string, error)
	Capture(ctx context.Context, authRef string, amount int64) (Capture, error)
	Refund(ctx context.Context, txnRef string, amount int64) error
}

// SimulatedGateway approves everything. It stands in for a processor in
// development and tests.
type SimulatedGateway struct{}

func (SimulatedGateway) Authorize(ctx context.Context, orderID, amount int64) (string, error) {
	return uuid.NewString(), nil
}

func (SimulatedGateway) Capture(ctx context.Context, authRef string, amount int64) (Capture, error) {
	return Capture{TxnRef: authRef, Method: domain.MethodUPI}, nil
}

func (SimulatedGateway) Refund(ctx context.Context, txnRef string, amount int64) error {
	return nil
}
