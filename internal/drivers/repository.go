package drivers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles driver data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new driver repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new driver.
func (r *Repository) Create(ctx context.Context, d *Driver) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO drivers (
			id, name, phone, vehicle_class, verification_status,
			online, available, rating_average, rating_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.Name, d.Phone, d.VehicleClass, d.VerificationStatus,
		d.Online, d.Available, d.RatingAverage, d.RatingCount,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetByID returns a driver, or nil when they do not exist.
func (r *Repository) GetByID(ctx context.Context, driverID string) (*Driver, error) {
	d := &Driver{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, phone, vehicle_class, verification_status,
			online, available, current_ride_id, rating_average, rating_count,
			created_at, updated_at
		FROM drivers WHERE id = $1`,
		driverID,
	).Scan(
		&d.ID, &d.Name, &d.Phone, &d.VehicleClass, &d.VerificationStatus,
		&d.Online, &d.Available, &d.CurrentRideID, &d.RatingAverage,
		&d.RatingCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdatePresence sets the online/available flags.
func (r *Repository) UpdatePresence(ctx context.Context, driverID string, online, available bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE drivers SET online = $2, available = $3, updated_at = $4
		WHERE id = $1`,
		driverID, online, available, time.Now(),
	)
	return err
}

// TryAssign claims the driver for a ride with a single conditional update.
// The WHERE clause is the linearization point: at most one concurrent accept
// can flip available to false.
func (r *Repository) TryAssign(ctx context.Context, driverID, rideID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE drivers
		SET available = FALSE, current_ride_id = $2, updated_at = $3
		WHERE id = $1
			AND online = TRUE
			AND available = TRUE
			AND current_ride_id IS NULL
			AND verification_status = 'approved'`,
		driverID, rideID, time.Now(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release frees the driver from their current ride. The available flag is
// restored for completions and cancellations, but not when the driver went
// offline mid-ride.
func (r *Repository) Release(ctx context.Context, driverID string, available bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE drivers
		SET available = ($2 AND online), current_ride_id = NULL, updated_at = $3
		WHERE id = $1`,
		driverID, available, time.Now(),
	)
	return err
}

// CreateEarning records one ride's revenue share.
func (r *Repository) CreateEarning(ctx context.Context, e *Earning) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO driver_earnings (
			id, driver_id, ride_id, gross_amount, commission, net_amount,
			currency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.DriverID, e.RideID, e.GrossAmount, e.Commission,
		e.NetAmount, e.Currency, e.CreatedAt,
	)
	return err
}

// GetEarningsSummary aggregates net earnings over the standard windows.
func (r *Repository) GetEarningsSummary(ctx context.Context, driverID string) (*EarningsSummary, error) {
	summary := &EarningsSummary{DriverID: driverID}
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN created_at >= date_trunc('day', NOW()) THEN net_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= date_trunc('week', NOW()) THEN net_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= date_trunc('month', NOW()) THEN net_amount ELSE 0 END), 0),
			COALESCE(SUM(net_amount), 0),
			COUNT(*)
		FROM driver_earnings
		WHERE driver_id = $1`,
		driverID,
	).Scan(&summary.Today, &summary.Week, &summary.Month, &summary.Lifetime, &summary.RideCount)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ApplyRating folds one star rating into the running average, count, and
// histogram in a single row update; concurrent ratings serialize on the
// row lock. Returns the new average and count. star is 1-5.
func (r *Repository) ApplyRating(ctx context.Context, driverID string, star int) (float64, int, error) {
	var average float64
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE drivers
		SET rating_average = ROUND(((rating_average * rating_count + $2) / (rating_count + 1))::numeric, 2),
			rating_count = rating_count + 1,
			rating_histogram[$2] = rating_histogram[$2] + 1,
			updated_at = $3
		WHERE id = $1
		RETURNING rating_average, rating_count`,
		driverID, star, time.Now(),
	).Scan(&average, &count)
	if err != nil {
		return 0, 0, err
	}
	return average, count, nil
}

// GetRatingStats returns the running average and histogram.
func (r *Repository) GetRatingStats(ctx context.Context, driverID string) (*RatingStats, error) {
	stats := &RatingStats{DriverID: driverID}
	var histogram []int
	err := r.db.QueryRow(ctx, `
		SELECT rating_average, rating_count, rating_histogram
		FROM drivers WHERE id = $1`,
		driverID,
	).Scan(&stats.Average, &stats.Count, &histogram)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(histogram) && i < 5; i++ {
		stats.Histogram[i] = histogram[i]
	}
	return stats, nil
}

var _ RepositoryInterface = (*Repository)(nil)
