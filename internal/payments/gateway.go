// Package payments abstracts the payment gateway the settlement flow
// charges through. Cash rides never reach the gateway.
package payments

import (
	"context"

	"github.com/swiftride/dispatch/pkg/common"
)

// ChargeRequest describes one payment to collect.
type ChargeRequest struct {
	Amount   float64 // in major currency units
	Currency string
	Method   string // card, upi, wallet
	Metadata map[string]string
}

// ChargeResult carries the gateway's reference for a successful charge.
type ChargeResult struct {
	PaymentID string
}

// Gateway is the payment collaborator. Charge failures surface as
// dependency errors; the ride transition that triggered the charge has
// already committed by the time the gateway is called.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, paymentID string, amount float64) error
}

// DisabledGateway refuses every charge. Deployed when no gateway is
// configured, so card bookings fail loudly instead of silently settling.
type DisabledGateway struct{}

// NewDisabledGateway creates a gateway that rejects all charges.
func NewDisabledGateway() *DisabledGateway {
	return &DisabledGateway{}
}

// Charge always fails.
func (g *DisabledGateway) Charge(context.Context, *ChargeRequest) (*ChargeResult, error) {
	return nil, common.NewDependencyError("payment gateway is not configured", nil)
}

// Refund always fails.
func (g *DisabledGateway) Refund(context.Context, string, float64) error {
	return common.NewDependencyError("payment gateway is not configured", nil)
}

var _ Gateway = (*DisabledGateway)(nil)
