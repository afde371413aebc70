// Package drivers owns driver records: presence, the single-assignment
// guarantee, earnings, and ratings.
package drivers

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/internal/geoindex"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/models"
)

const (
	// driverShare is the fraction of the final fare credited to the
	// driver; the remainder is platform commission.
	driverShare = 0.80

	defaultCurrency = "INR"
)

// LocationIndex is the slice of the geo index the driver service writes to.
type LocationIndex interface {
	Upsert(ctx context.Context, p *geoindex.Presence) error
	Remove(ctx context.Context, driverID string, class models.VehicleClass) error
}

// Service handles driver business logic
type Service struct {
	repo  RepositoryInterface
	index LocationIndex
}

// NewService creates a new driver service
func NewService(repo RepositoryInterface, index LocationIndex) *Service {
	return &Service{repo: repo, index: index}
}

// RegisterRequest carries a new driver's details.
type RegisterRequest struct {
	Name         string              `json:"name" binding:"required"`
	Phone        string              `json:"phone" binding:"required"`
	VehicleClass models.VehicleClass `json:"vehicle_class" binding:"required,vehicle_class"`
}

// Register creates a driver in pending verification. They cannot receive
// offers until approved.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Driver, error) {
	if !req.VehicleClass.Valid() {
		return nil, common.NewInvalidInputError("unknown vehicle class: " + string(req.VehicleClass))
	}

	now := time.Now()
	driver := &Driver{
		ID:                 "DRV-" + uuid.New().String(),
		Name:               req.Name,
		Phone:              req.Phone,
		VehicleClass:       req.VehicleClass,
		VerificationStatus: VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, driver); err != nil {
		return nil, common.NewInternalError("failed to create driver", err)
	}

	logger.InfoContext(ctx, "driver registered",
		zap.String("driver_id", driver.ID),
		zap.String("vehicle_class", string(driver.VehicleClass)),
	)
	return driver, nil
}

// GetByID returns a driver.
func (s *Service) GetByID(ctx context.Context, driverID string) (*Driver, error) {
	driver, err := s.repo.GetByID(ctx, driverID)
	if err != nil {
		return nil, common.NewInternalError("failed to load driver", err)
	}
	if driver == nil {
		return nil, common.NewNotFoundError("driver not found", nil)
	}
	return driver, nil
}

// UpdateLocation records a location heartbeat and refreshes the driver's
// presence in the geo index.
func (s *Service) UpdateLocation(ctx context.Context, driverID string, lat, lon float64) error {
	driver, err := s.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	return s.index.Upsert(ctx, &geoindex.Presence{
		DriverID:     driver.ID,
		VehicleClass: driver.VehicleClass,
		Latitude:     lat,
		Longitude:    lon,
		Rating:       driver.RatingAverage,
		Online:       driver.Online,
		Available:    driver.Available,
		Approved:     driver.VerificationStatus == VerificationApproved,
	})
}

// SetPresence flips the online/available flags. Going offline removes the
// driver from the search index immediately. Available is only ever stored
// true for an online, approved driver; the flag is normalized here so the
// row never carries an availability the driver cannot honor.
func (s *Service) SetPresence(ctx context.Context, driverID string, online, available bool) error {
	driver, err := s.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if driver.CurrentRideID != nil && available {
		return common.NewConflictError("driver has an active ride")
	}

	available = available && online && driver.VerificationStatus == VerificationApproved

	if err := s.repo.UpdatePresence(ctx, driverID, online, available); err != nil {
		return common.NewInternalError("failed to update presence", err)
	}

	if !online {
		if err := s.index.Remove(ctx, driverID, driver.VehicleClass); err != nil {
			logger.WarnContext(ctx, "failed to remove driver from geo index",
				zap.String("driver_id", driverID), zap.Error(err))
		}
	}
	return nil
}

// TryAssign atomically claims the driver for a ride. The winner is decided
// by a conditional update on the driver row; a claimed driver is pulled
// from the search index so no further offers reach them.
func (s *Service) TryAssign(ctx context.Context, driverID, rideID string) (bool, error) {
	driver, err := s.GetByID(ctx, driverID)
	if err != nil {
		return false, err
	}

	won, err := s.repo.TryAssign(ctx, driverID, rideID)
	if err != nil {
		return false, common.NewInternalError("failed to assign driver", err)
	}
	if !won {
		return false, nil
	}

	if err := s.index.Remove(ctx, driverID, driver.VehicleClass); err != nil {
		logger.WarnContext(ctx, "failed to remove assigned driver from geo index",
			zap.String("driver_id", driverID), zap.Error(err))
	}

	logger.InfoContext(ctx, "driver assigned",
		zap.String("driver_id", driverID),
		zap.String("ride_id", rideID),
	)
	return true, nil
}

// Release frees the driver once their ride concludes. They rejoin the
// search index on their next location heartbeat.
func (s *Service) Release(ctx context.Context, driverID string) error {
	if err := s.repo.Release(ctx, driverID, true); err != nil {
		return common.NewInternalError("failed to release driver", err)
	}
	return nil
}

// CreditEarnings records the driver's share of a settled fare.
func (s *Service) CreditEarnings(ctx context.Context, driverID, rideID string, totalFare float64) (*Earning, error) {
	if totalFare < 0 {
		return nil, common.NewInvalidInputError("fare cannot be negative")
	}

	net := round2(totalFare * driverShare)
	earning := &Earning{
		ID:          "ERN-" + uuid.New().String(),
		DriverID:    driverID,
		RideID:      rideID,
		GrossAmount: round2(totalFare),
		Commission:  round2(totalFare - net),
		NetAmount:   net,
		Currency:    defaultCurrency,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateEarning(ctx, earning); err != nil {
		return nil, common.NewInternalError("failed to credit earnings", err)
	}

	logger.InfoContext(ctx, "driver earnings credited",
		zap.String("driver_id", driverID),
		zap.String("ride_id", rideID),
		zap.Float64("net_amount", earning.NetAmount),
	)
	return earning, nil
}

// EarningsSummary aggregates the driver's earnings windows.
func (s *Service) EarningsSummary(ctx context.Context, driverID string) (*EarningsSummary, error) {
	summary, err := s.repo.GetEarningsSummary(ctx, driverID)
	if err != nil {
		return nil, common.NewInternalError("failed to load earnings", err)
	}
	return summary, nil
}

// ApplyRating folds one star rating into the driver's running average and
// histogram. The repository does the arithmetic in a single statement so
// concurrent ratings serialize on the driver row. Callers enforce
// once-per-ride idempotence.
func (s *Service) ApplyRating(ctx context.Context, driverID string, rating int) (*Driver, error) {
	if rating < 1 || rating > 5 {
		return nil, common.NewInvalidInputError("rating must be between 1 and 5")
	}

	driver, err := s.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	average, count, err := s.repo.ApplyRating(ctx, driverID, rating)
	if err != nil {
		return nil, common.NewInternalError("failed to update rating", err)
	}

	driver.RatingAverage = average
	driver.RatingCount = count
	return driver, nil
}

// RatingStats returns the driver's rating average, count, and histogram.
func (s *Service) RatingStats(ctx context.Context, driverID string) (*RatingStats, error) {
	stats, err := s.repo.GetRatingStats(ctx, driverID)
	if err != nil {
		return nil, common.NewInternalError("failed to load rating stats", err)
	}
	if stats == nil {
		return nil, common.NewNotFoundError("driver not found", nil)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
