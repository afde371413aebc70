package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles subscription data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new subscription repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePlan inserts a new plan.
func (r *Repository) CreatePlan(ctx context.Context, plan *Plan) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscription_plans (
			id, name, vehicle_class, allowance_km, price, currency,
			duration_days, overage_rate_per_km, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		plan.ID, plan.Name, plan.VehicleClass, plan.AllowanceKm, plan.Price,
		plan.Currency, plan.DurationDays, plan.OverageRatePerKm, plan.CreatedAt,
	)
	return err
}

// GetPlanByID returns a plan, or nil when it does not exist.
func (r *Repository) GetPlanByID(ctx context.Context, planID string) (*Plan, error) {
	p := &Plan{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, vehicle_class, allowance_km, price, currency,
			duration_days, overage_rate_per_km, created_at
		FROM subscription_plans WHERE id = $1`,
		planID,
	).Scan(
		&p.ID, &p.Name, &p.VehicleClass, &p.AllowanceKm, &p.Price,
		&p.Currency, &p.DurationDays, &p.OverageRatePerKm, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlans returns all plans ordered by price.
func (r *Repository) ListPlans(ctx context.Context) ([]*Plan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, vehicle_class, allowance_km, price, currency,
			duration_days, overage_rate_per_km, created_at
		FROM subscription_plans ORDER BY price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p := &Plan{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.VehicleClass, &p.AllowanceKm, &p.Price,
			&p.Currency, &p.DurationDays, &p.OverageRatePerKm, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// CreateSubscription inserts a new subscription.
func (r *Repository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscriptions (
			id, rider_id, plan_id, vehicle_class, status,
			remaining_km, used_km, starts_at, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.ID, sub.RiderID, sub.PlanID, sub.VehicleClass, sub.Status,
		sub.RemainingKm, sub.UsedKm, sub.StartsAt, sub.ExpiresAt,
		sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

// GetByID returns a subscription, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectSubscription+` WHERE id = $1`, subscriptionID))
}

// GetActiveByRider returns the rider's active subscription with the latest
// expiry, or nil when they have none.
func (r *Repository) GetActiveByRider(ctx context.Context, riderID string) (*Subscription, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectSubscription+`
		WHERE rider_id = $1 AND status = 'active' AND expires_at > NOW()
		ORDER BY expires_at DESC LIMIT 1`, riderID))
}

// UpdateUsage persists the allowance counters after a consume.
func (r *Repository) UpdateUsage(ctx context.Context, sub *Subscription) error {
	_, err := r.db.Exec(ctx, `
		UPDATE subscriptions
		SET remaining_km = $2, used_km = $3, updated_at = $4
		WHERE id = $1`,
		sub.ID, sub.RemainingKm, sub.UsedKm, time.Now(),
	)
	return err
}

// UpdateStatus changes a subscription's status.
func (r *Repository) UpdateStatus(ctx context.Context, subscriptionID string, status Status) error {
	_, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = $3 WHERE id = $1`,
		subscriptionID, status, time.Now(),
	)
	return err
}

const selectSubscription = `
	SELECT id, rider_id, plan_id, vehicle_class, status,
		remaining_km, used_km, starts_at, expires_at, created_at, updated_at
	FROM subscriptions`

func (r *Repository) scanOne(row pgx.Row) (*Subscription, error) {
	s := &Subscription{}
	err := row.Scan(
		&s.ID, &s.RiderID, &s.PlanID, &s.VehicleClass, &s.Status,
		&s.RemainingKm, &s.UsedKm, &s.StartsAt, &s.ExpiresAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ RepositoryInterface = (*Repository)(nil)
