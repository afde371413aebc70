// Package subscriptions manages prepaid distance allowances. The ledger is
// the only writer of allowance counters; fare math reads coverage through
// Subscription.Covers and never mutates the balance.
package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/models"
)

// Ledger handles subscription business logic
type Ledger struct {
	repo RepositoryInterface
}

// NewLedger creates a new subscription ledger
func NewLedger(repo RepositoryInterface) *Ledger {
	return &Ledger{repo: repo}
}

// CreatePlanRequest defines a new prepaid distance package.
type CreatePlanRequest struct {
	Name             string              `json:"name" binding:"required"`
	VehicleClass     models.VehicleClass `json:"vehicle_class" binding:"required,vehicle_class"`
	AllowanceKm      float64             `json:"allowance_km" binding:"required,gt=0"`
	Price            float64             `json:"price" binding:"required,gt=0"`
	Currency         string              `json:"currency"`
	DurationDays     int                 `json:"duration_days" binding:"required,gt=0"`
	OverageRatePerKm float64             `json:"overage_rate_per_km"`
}

// CreatePlan adds a purchasable plan.
func (l *Ledger) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	if !req.VehicleClass.Valid() {
		return nil, common.NewInvalidInputError("unknown vehicle class: " + string(req.VehicleClass))
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	plan := &Plan{
		ID:               "PLN-" + uuid.New().String(),
		Name:             req.Name,
		VehicleClass:     req.VehicleClass,
		AllowanceKm:      req.AllowanceKm,
		Price:            req.Price,
		Currency:         currency,
		DurationDays:     req.DurationDays,
		OverageRatePerKm: req.OverageRatePerKm,
		CreatedAt:        time.Now(),
	}
	if err := l.repo.CreatePlan(ctx, plan); err != nil {
		return nil, common.NewInternalError("failed to create plan", err)
	}
	return plan, nil
}

// ListPlans lists purchasable plans.
func (l *Ledger) ListPlans(ctx context.Context) ([]*Plan, error) {
	return l.repo.ListPlans(ctx)
}

// GetByID returns a subscription.
func (l *Ledger) GetByID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sub, err := l.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, common.NewInternalError("failed to load subscription", err)
	}
	if sub == nil {
		return nil, common.NewNotFoundError("subscription not found", nil)
	}
	return sub, nil
}

// Subscribe creates a subscription for a rider from a plan. A rider holds
// at most one active subscription at a time.
func (l *Ledger) Subscribe(ctx context.Context, riderID, planID string) (*Subscription, error) {
	plan, err := l.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, common.NewInternalError("failed to load plan", err)
	}
	if plan == nil {
		return nil, common.NewNotFoundError("plan not found", nil)
	}

	existing, err := l.repo.GetActiveByRider(ctx, riderID)
	if err != nil {
		return nil, common.NewInternalError("failed to check existing subscription", err)
	}
	if existing != nil {
		return nil, common.NewConflictError("rider already has an active subscription")
	}

	now := time.Now()
	sub := &Subscription{
		ID:           "SUB-" + uuid.New().String(),
		RiderID:      riderID,
		PlanID:       plan.ID,
		VehicleClass: plan.VehicleClass,
		Status:       StatusActive,
		RemainingKm:  plan.AllowanceKm,
		UsedKm:       0,
		StartsAt:     now,
		ExpiresAt:    now.AddDate(0, 0, plan.DurationDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, common.NewInternalError("failed to create subscription", err)
	}

	logger.InfoContext(ctx, "subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("rider_id", riderID),
		zap.String("plan_id", planID),
		zap.Float64("allowance_km", plan.AllowanceKm),
	)
	return sub, nil
}

// ActiveForRider returns the rider's active subscription, nil when none.
func (l *Ledger) ActiveForRider(ctx context.Context, riderID string) (*Subscription, error) {
	sub, err := l.repo.GetActiveByRider(ctx, riderID)
	if err != nil {
		return nil, common.NewInternalError("failed to load subscription", err)
	}
	return sub, nil
}

// CancelSubscription ends a subscription early. The remaining allowance is
// forfeited, not refunded.
func (l *Ledger) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sub, err := l.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusActive {
		return nil, common.NewConflictError("subscription is not active")
	}

	if err := l.repo.UpdateStatus(ctx, subscriptionID, StatusCancelled); err != nil {
		return nil, common.NewInternalError("failed to cancel subscription", err)
	}
	sub.Status = StatusCancelled

	logger.InfoContext(ctx, "subscription cancelled",
		zap.String("subscription_id", subscriptionID),
		zap.Float64("forfeited_km", sub.RemainingKm),
	)
	return sub, nil
}

// Consume deducts a completed ride's distance from the subscription's
// allowance. Remaining caps at zero; over-consumption is never an error
// here, any overage cost is priced before this call.
func (l *Ledger) Consume(ctx context.Context, subscriptionID string, distanceKm float64) (*Subscription, error) {
	if distanceKm < 0 {
		return nil, common.NewInvalidInputError("distance cannot be negative")
	}

	sub, err := l.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, common.NewInternalError("failed to load subscription", err)
	}
	if sub == nil {
		return nil, common.NewNotFoundError("subscription not found", nil)
	}

	sub.ConsumeDistance(distanceKm)
	if err := l.repo.UpdateUsage(ctx, sub); err != nil {
		return nil, common.NewInternalError("failed to update allowance", err)
	}

	logger.InfoContext(ctx, "subscription allowance consumed",
		zap.String("subscription_id", sub.ID),
		zap.Float64("distance_km", distanceKm),
		zap.Float64("remaining_km", sub.RemainingKm),
		zap.Float64("used_km", sub.UsedKm),
	)
	return sub, nil
}
