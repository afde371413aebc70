package rides

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch/internal/eco"
)

// Repository handles ride data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ride repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new ride.
func (r *Repository) Create(ctx context.Context, ride *Ride) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rides (
			id, rider_id, vehicle_class, special_requests, payment_method,
			pickup_address, pickup_lat, pickup_lon,
			destination_address, destination_lat, destination_lon,
			estimated_distance_km, estimated_duration_min,
			base_fare, distance_fare, time_fare, surge_multiplier,
			surge_amount, subscription_discount, tip, total_fare,
			status, payment_status, is_subscription_ride, subscription_id,
			requested_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25,
			$26, $27, $28
		)`,
		ride.ID, ride.RiderID, ride.VehicleClass, ride.SpecialRequests, ride.PaymentMethod,
		ride.Pickup.Address, ride.Pickup.Latitude, ride.Pickup.Longitude,
		ride.Destination.Address, ride.Destination.Latitude, ride.Destination.Longitude,
		ride.EstimatedDistanceKm, ride.EstimatedDurationMin,
		ride.Fare.BaseFare, ride.Fare.DistanceFare, ride.Fare.TimeFare, ride.Fare.SurgeMultiplier,
		ride.Fare.SurgeAmount, ride.Fare.SubscriptionDiscount, ride.Fare.Tip, ride.Fare.Total,
		ride.Status, ride.PaymentStatus, ride.IsSubscriptionRide, ride.SubscriptionID,
		ride.RequestedAt, ride.CreatedAt, ride.UpdatedAt,
	)
	return err
}

const selectRide = `
	SELECT id, rider_id, driver_id, vehicle_class, special_requests, payment_method,
		pickup_address, pickup_lat, pickup_lon,
		destination_address, destination_lat, destination_lon,
		estimated_distance_km, estimated_duration_min,
		actual_distance_km, actual_duration_min,
		base_fare, distance_fare, time_fare, surge_multiplier,
		surge_amount, subscription_discount, tip, total_fare,
		co2_saved_kg, fuel_saved_l, trees_equivalent,
		status, payment_status, payment_id, is_subscription_ride, subscription_id,
		eta_minutes, cancellation_fee, cancel_actor, cancel_reason,
		requested_at, assigned_at, started_at, completed_at, cancelled_at,
		created_at, updated_at
	FROM rides`

// GetByID returns a ride, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, rideID string) (*Ride, error) {
	ride := &Ride{}
	var co2, fuel, trees *float64
	err := r.db.QueryRow(ctx, selectRide+` WHERE id = $1`, rideID).Scan(
		&ride.ID, &ride.RiderID, &ride.DriverID, &ride.VehicleClass,
		&ride.SpecialRequests, &ride.PaymentMethod,
		&ride.Pickup.Address, &ride.Pickup.Latitude, &ride.Pickup.Longitude,
		&ride.Destination.Address, &ride.Destination.Latitude, &ride.Destination.Longitude,
		&ride.EstimatedDistanceKm, &ride.EstimatedDurationMin,
		&ride.ActualDistanceKm, &ride.ActualDurationMin,
		&ride.Fare.BaseFare, &ride.Fare.DistanceFare, &ride.Fare.TimeFare,
		&ride.Fare.SurgeMultiplier, &ride.Fare.SurgeAmount,
		&ride.Fare.SubscriptionDiscount, &ride.Fare.Tip, &ride.Fare.Total,
		&co2, &fuel, &trees,
		&ride.Status, &ride.PaymentStatus, &ride.PaymentID,
		&ride.IsSubscriptionRide, &ride.SubscriptionID,
		&ride.ETAMinutes, &ride.CancellationFee, &ride.CancelActor, &ride.CancelReason,
		&ride.RequestedAt, &ride.AssignedAt, &ride.StartedAt,
		&ride.CompletedAt, &ride.CancelledAt,
		&ride.CreatedAt, &ride.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if co2 != nil && fuel != nil && trees != nil {
		ride.Eco = &eco.Impact{CO2SavedKg: *co2, FuelSavedL: *fuel, TreesEquivalent: *trees}
	}
	return ride, nil
}

// TransitionStatus is a CAS on the status column. started_at is stamped on
// first entry to in_progress and never overwritten.
func (r *Repository) TransitionStatus(ctx context.Context, rideID string, from, to Status, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rides
		SET status = $3,
			started_at = CASE WHEN $3 = 'in_progress' THEN COALESCE(started_at, $4) ELSE started_at END,
			updated_at = $4
		WHERE id = $1 AND status = $2`,
		rideID, from, to, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AssignDriver is the accept-race linearization point: only one concurrent
// caller can move the ride out of requested/searching.
func (r *Repository) AssignDriver(ctx context.Context, rideID, driverID string, etaMinutes int, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rides
		SET status = 'driver_assigned',
			driver_id = $2,
			eta_minutes = $3,
			assigned_at = COALESCE(assigned_at, $4),
			updated_at = $4
		WHERE id = $1 AND status IN ('requested', 'searching')`,
		rideID, driverID, etaMinutes, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves the ride to cancelled with actor, reason, and fee.
func (r *Repository) Cancel(ctx context.Context, rideID string, from Status, actor Actor, reason string, fee float64, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rides
		SET status = 'cancelled',
			cancel_actor = $3,
			cancel_reason = $4,
			cancellation_fee = $5,
			cancelled_at = COALESCE(cancelled_at, $6),
			updated_at = $6
		WHERE id = $1 AND status = $2`,
		rideID, from, actor, reason, fee, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteSettlement commits the completion as one transaction so a ride is
// never completed with its allowance undebited or eco stats uncredited.
func (r *Repository) CompleteSettlement(ctx context.Context, ride *Ride, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET status = 'completed',
			actual_distance_km = $2,
			actual_duration_min = $3,
			base_fare = $4, distance_fare = $5, time_fare = $6,
			surge_multiplier = $7, surge_amount = $8,
			subscription_discount = $9, tip = $10, total_fare = $11,
			co2_saved_kg = $12, fuel_saved_l = $13, trees_equivalent = $14,
			completed_at = COALESCE(completed_at, $15),
			updated_at = $15
		WHERE id = $1 AND status = 'in_progress'`,
		ride.ID, ride.ActualDistanceKm, ride.ActualDurationMin,
		ride.Fare.BaseFare, ride.Fare.DistanceFare, ride.Fare.TimeFare,
		ride.Fare.SurgeMultiplier, ride.Fare.SurgeAmount,
		ride.Fare.SubscriptionDiscount, ride.Fare.Tip, ride.Fare.Total,
		ride.Eco.CO2SavedKg, ride.Eco.FuelSavedL, ride.Eco.TreesEquivalent,
		at,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE riders
		SET co2_saved_kg = co2_saved_kg + $2,
			fuel_saved_l = fuel_saved_l + $3,
			trees_equivalent = trees_equivalent + $4,
			updated_at = $5
		WHERE id = $1`,
		ride.RiderID, ride.Eco.CO2SavedKg, ride.Eco.FuelSavedL,
		ride.Eco.TreesEquivalent, at,
	)
	if err != nil {
		return false, err
	}

	if ride.IsSubscriptionRide && ride.SubscriptionID != nil && ride.ActualDistanceKm != nil {
		_, err = tx.Exec(ctx, `
			UPDATE subscriptions
			SET remaining_km = GREATEST(0, remaining_km - $2),
				used_km = used_km + $2,
				updated_at = $3
			WHERE id = $1`,
			*ride.SubscriptionID, *ride.ActualDistanceKm, at,
		)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// SetPaymentStatus updates the payment axis independently of ride status.
func (r *Repository) SetPaymentStatus(ctx context.Context, rideID string, status PaymentStatus, paymentID *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE rides
		SET payment_status = $2, payment_id = COALESCE($3, payment_id), updated_at = $4
		WHERE id = $1`,
		rideID, status, paymentID, time.Now(),
	)
	return err
}

// CreateRating inserts a rating; the (ride_id, rater) unique constraint
// rejects a second rating from the same party.
func (r *Repository) CreateRating(ctx context.Context, rating *Rating) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO ride_ratings (id, ride_id, rater, rating, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ride_id, rater) DO NOTHING`,
		rating.ID, rating.RideID, rating.Rater, rating.Rating,
		rating.Feedback, rating.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var _ RepositoryInterface = (*Repository)(nil)
