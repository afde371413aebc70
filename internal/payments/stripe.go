package payments

import (
	"context"
	"math"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/logger"
)

// StripeGateway charges through Stripe payment intents.
type StripeGateway struct{}

// NewStripeGateway configures the Stripe client with the given API key.
func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

// Charge creates and auto-confirms a payment intent for the amount.
func (g *StripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req.Amount <= 0 {
		return nil, common.NewInvalidInputError("charge amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, common.NewDependencyError("failed to create payment intent", err)
	}

	logger.InfoContext(ctx, "payment intent created",
		zap.String("payment_id", pi.ID),
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)
	return &ChargeResult{PaymentID: pi.ID}, nil
}

// Refund returns part or all of a previous charge.
func (g *StripeGateway) Refund(ctx context.Context, paymentID string, amount float64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
	}
	if amount > 0 {
		params.Amount = stripe.Int64(toMinorUnits(amount))
	}

	if _, err := refund.New(params); err != nil {
		return common.NewDependencyError("failed to create refund", err)
	}

	logger.InfoContext(ctx, "refund created",
		zap.String("payment_id", paymentID),
		zap.Float64("amount", amount),
	)
	return nil
}

// toMinorUnits converts a major-unit amount to the gateway's integer minor
// units (paise, cents).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

var _ Gateway = (*StripeGateway)(nil)
