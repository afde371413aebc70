package subscriptions

import "context"

// RepositoryInterface defines subscription data access.
type RepositoryInterface interface {
	CreatePlan(ctx context.Context, plan *Plan) error
	GetPlanByID(ctx context.Context, planID string) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)

	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, subscriptionID string) (*Subscription, error)
	GetActiveByRider(ctx context.Context, riderID string) (*Subscription, error)
	UpdateUsage(ctx context.Context, sub *Subscription) error
	UpdateStatus(ctx context.Context, subscriptionID string, status Status) error
}
