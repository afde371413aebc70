package drivers

import "context"

// RepositoryInterface defines driver data access.
type RepositoryInterface interface {
	Create(ctx context.Context, driver *Driver) error
	GetByID(ctx context.Context, driverID string) (*Driver, error)
	UpdatePresence(ctx context.Context, driverID string, online, available bool) error

	// TryAssign atomically claims an available driver for a ride. Returns
	// false without error when the driver was not claimable.
	TryAssign(ctx context.Context, driverID, rideID string) (bool, error)
	// Release frees a driver after a ride concludes.
	Release(ctx context.Context, driverID string, available bool) error

	CreateEarning(ctx context.Context, earning *Earning) error
	GetEarningsSummary(ctx context.Context, driverID string) (*EarningsSummary, error)

	// ApplyRating folds one star into the running average, count, and
	// histogram in a single statement and returns the new average and count.
	ApplyRating(ctx context.Context, driverID string, star int) (float64, int, error)
	GetRatingStats(ctx context.Context, driverID string) (*RatingStats, error)
}
