// Package dispatch runs the matching phase: fanning ride offers out to
// nearby drivers, settling the first-accept race, and timing out searches
// that found no acceptor. Offers live in an expiring key-value store so a
// crashed engine never leaves a stale offer acceptable.
package dispatch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch/internal/notifications"
	"github.com/swiftride/dispatch/internal/rides"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/eventbus"
	"github.com/swiftride/dispatch/pkg/kvstore"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/metrics"
	"github.com/swiftride/dispatch/pkg/websocket"
)

const (
	offerKeyPrefix = "dispatch:offer:"
	offerSetPrefix = "dispatch:offers:"
	lockKeyPrefix  = "dispatch:lock:"

	acceptLockTTL  = 5 * time.Second
	timeoutBudget  = 10 * time.Second
	offerSetMargin = time.Minute

	messageRideOffer      = "ride_offer"
	messageOfferCancelled = "offer_cancelled"
)

// Deps collects the coordinator's collaborators.
type Deps struct {
	Rides     RideStore
	Drivers   DriverPool
	Index     Locator
	Offers    kvstore.Store
	Locker    Locker
	Scheduler Scheduler
	Pusher    Pusher
	Notifier  notifications.Notifier
	Lifecycle Lifecycle
	Events    rides.EventPublisher
	Config    config.DispatchConfig
}

// Coordinator matches requested rides with drivers.
type Coordinator struct {
	deps Deps
}

// NewCoordinator creates a dispatch coordinator.
func NewCoordinator(deps Deps) *Coordinator {
	return &Coordinator{deps: deps}
}

var _ rides.Dispatcher = (*Coordinator)(nil)

func offerKey(rideID, driverID string) string {
	return offerKeyPrefix + rideID + ":" + driverID
}

func offerSetKey(rideID string) string {
	return offerSetPrefix + rideID
}

func lockKey(rideID string) string {
	return lockKeyPrefix + rideID
}

// ========================================
// REQUEST
// ========================================

// Request moves the ride into searching, offers it to nearby drivers, and
// arms the search timeout. A search that finds nobody right now still waits
// out the timeout before the system cancels it.
func (c *Coordinator) Request(ctx context.Context, ride *rides.Ride) error {
	moved, err := c.deps.Rides.TransitionStatus(ctx, ride.ID, rides.StatusRequested, rides.StatusSearching, time.Now())
	if err != nil {
		return common.NewInternalError("failed to start driver search", err)
	}
	if !moved {
		return common.NewConflictError("ride is no longer awaiting dispatch")
	}

	candidates, err := c.deps.Index.Nearby(ctx,
		ride.Pickup.Latitude, ride.Pickup.Longitude,
		c.deps.Config.SearchRadiusKm, ride.VehicleClass, c.deps.Config.MaxDriversPerOffer)
	if err != nil {
		logger.ErrorContext(ctx, "driver search failed",
			zap.String("ride_id", ride.ID), zap.Error(err))
		candidates = nil
	}

	offered := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		driverID := cand.Presence.DriverID
		eta := strconv.Itoa(cand.ETAMinutes)
		if err := c.deps.Offers.Put(ctx, offerKey(ride.ID, driverID), eta, c.deps.Config.OfferTTL()); err != nil {
			logger.WarnContext(ctx, "failed to record offer",
				zap.String("ride_id", ride.ID),
				zap.String("driver_id", driverID),
				zap.Error(err))
			continue
		}
		offered = append(offered, driverID)

		c.deps.Pusher.SendToDriver(driverID, &websocket.Message{
			Type:   messageRideOffer,
			RideID: ride.ID,
			Data: map[string]interface{}{
				"pickup_address":      ride.Pickup.Address,
				"pickup_latitude":     ride.Pickup.Latitude,
				"pickup_longitude":    ride.Pickup.Longitude,
				"destination_address": ride.Destination.Address,
				"estimated_fare":      ride.Fare.Total,
				"distance_to_pickup":  cand.DistanceKm,
				"eta_minutes":         cand.ETAMinutes,
				"expires_in_seconds":  int(c.deps.Config.OfferTTL().Seconds()),
			},
		})
		metrics.OffersSent.Inc()
	}

	if len(offered) > 0 {
		if err := c.deps.Offers.Put(ctx, offerSetKey(ride.ID),
			strings.Join(offered, ","), c.deps.Config.SearchTimeout()+offerSetMargin); err != nil {
			logger.WarnContext(ctx, "failed to record offer set",
				zap.String("ride_id", ride.ID), zap.Error(err))
		}
	}

	c.deps.Scheduler.Schedule(ride.ID, c.deps.Config.SearchTimeout(), func() {
		c.searchTimedOut(ride.ID)
	})

	logger.InfoContext(ctx, "ride offered to drivers",
		zap.String("ride_id", ride.ID),
		zap.String("vehicle_class", string(ride.VehicleClass)),
		zap.Int("drivers_offered", len(offered)),
	)
	return nil
}

// searchTimedOut cancels a ride whose search window closed without an
// acceptor. An already-assigned ride makes the cancel a rejected
// transition, which is the expected outcome of losing that race.
func (c *Coordinator) searchTimedOut(rideID string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutBudget)
	defer cancel()

	if _, err := c.deps.Lifecycle.Cancel(ctx, rideID, rides.ActorSystem, rides.CancelReasonNoDriver); err != nil {
		logger.Debug("search timeout cancel rejected",
			zap.String("ride_id", rideID), zap.Error(err))
		return
	}
	metrics.SearchTimeouts.Inc()
	logger.Info("ride search timed out", zap.String("ride_id", rideID))
}

// ========================================
// ACCEPT
// ========================================

// Accept settles a driver's claim on an offered ride. Exactly one caller
// wins; the rest get an already-assigned error and no state is changed for
// them. The ride-row CAS is the arbiter, the lock only serializes the
// driver reservation around it.
func (c *Coordinator) Accept(ctx context.Context, rideID, driverID string) (*rides.Ride, error) {
	etaRaw, valid, err := c.deps.Offers.Get(ctx, offerKey(rideID, driverID))
	if err != nil {
		return nil, common.NewInternalError("failed to check offer", err)
	}
	if !valid {
		return nil, c.rejectStaleOffer(ctx, rideID)
	}
	eta, _ := strconv.Atoi(etaRaw)

	acquired, err := c.deps.Locker.Acquire(ctx, lockKey(rideID), acceptLockTTL)
	if err != nil {
		logger.WarnContext(ctx, "accept lock unavailable, relying on row CAS",
			zap.String("ride_id", rideID), zap.Error(err))
	} else if !acquired {
		metrics.AcceptConflicts.Inc()
		return nil, common.NewAlreadyAssignedError(rideID)
	} else {
		defer func() {
			if err := c.deps.Locker.Release(ctx, lockKey(rideID)); err != nil {
				logger.WarnContext(ctx, "failed to release accept lock",
					zap.String("ride_id", rideID), zap.Error(err))
			}
		}()
	}

	reserved, err := c.deps.Drivers.TryAssign(ctx, driverID, rideID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, common.NewConflictError("driver is not available for assignment")
	}

	now := time.Now()
	won, err := c.deps.Rides.AssignDriver(ctx, rideID, driverID, eta, now)
	if err != nil {
		c.releaseDriver(ctx, driverID)
		return nil, common.NewInternalError("failed to assign driver", err)
	}
	if !won {
		c.releaseDriver(ctx, driverID)
		metrics.AcceptConflicts.Inc()
		return nil, common.NewAlreadyAssignedError(rideID)
	}

	c.deps.Scheduler.Cancel(rideID)
	c.cleanupOffers(ctx, rideID, driverID)
	metrics.AcceptWins.Inc()

	ride, err := c.deps.Rides.GetByID(ctx, rideID)
	if err != nil || ride == nil {
		return nil, common.NewInternalError("failed to reload assigned ride", err)
	}

	c.notifyAssigned(ctx, ride, driverID, eta)
	c.publishAssigned(ctx, rideID, driverID, eta, now)

	logger.InfoContext(ctx, "driver assigned",
		zap.String("ride_id", rideID),
		zap.String("driver_id", driverID),
		zap.Int("eta_minutes", eta),
	)
	return ride, nil
}

// rejectStaleOffer classifies an accept with no live offer: the ride was
// taken, finished, or the offer simply expired.
func (c *Coordinator) rejectStaleOffer(ctx context.Context, rideID string) error {
	ride, err := c.deps.Rides.GetByID(ctx, rideID)
	if err != nil || ride == nil {
		return common.NewNotFoundError("ride not found", err)
	}
	if ride.Status != rides.StatusRequested && ride.Status != rides.StatusSearching {
		metrics.AcceptConflicts.Inc()
		return common.NewAlreadyAssignedError(rideID)
	}
	return common.NewConflictError("offer has expired")
}

func (c *Coordinator) releaseDriver(ctx context.Context, driverID string) {
	if err := c.deps.Drivers.Release(ctx, driverID); err != nil {
		logger.ErrorContext(ctx, "failed to release reserved driver",
			zap.String("driver_id", driverID), zap.Error(err))
	}
}

func (c *Coordinator) notifyAssigned(ctx context.Context, ride *rides.Ride, driverID string, eta int) {
	driverName := driverID
	if driver, err := c.deps.Drivers.GetByID(ctx, driverID); err == nil && driver != nil {
		driverName = driver.Name
	}
	if err := c.deps.Notifier.Send(ctx, ride.RiderID, notifications.TemplateRideAssigned, map[string]string{
		"ride_id":     ride.ID,
		"driver_name": driverName,
		"eta_minutes": strconv.Itoa(eta),
	}); err != nil {
		logger.WarnContext(ctx, "assignment notification failed",
			zap.String("ride_id", ride.ID), zap.Error(err))
	}
}

func (c *Coordinator) publishAssigned(ctx context.Context, rideID, driverID string, eta int, at time.Time) {
	if c.deps.Events == nil {
		return
	}
	event, err := eventbus.NewEvent("ride_assigned", "dispatch-engine", eventbus.RideAssignedEvent{
		RideID:     rideID,
		DriverID:   driverID,
		ETAMinutes: eta,
		AssignedAt: at,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to build assignment event", zap.Error(err))
		return
	}
	if err := c.deps.Events.Publish(ctx, eventbus.SubjectRideAssigned, event); err != nil {
		logger.WarnContext(ctx, "failed to publish assignment event",
			zap.String("ride_id", rideID), zap.Error(err))
	}
}

// ========================================
// CANCEL SEARCH
// ========================================

// CancelSearch stops the timeout timer and withdraws outstanding offers.
// Called when the ride leaves the search phase for any reason other than a
// winning accept.
func (c *Coordinator) CancelSearch(ctx context.Context, rideID string) {
	c.deps.Scheduler.Cancel(rideID)
	c.cleanupOffers(ctx, rideID, "")
}

// cleanupOffers withdraws every outstanding offer for the ride, pushing a
// cancellation to each offered driver except the winner.
func (c *Coordinator) cleanupOffers(ctx context.Context, rideID, winnerID string) {
	listed, ok, err := c.deps.Offers.Get(ctx, offerSetKey(rideID))
	if err != nil {
		logger.WarnContext(ctx, "failed to load offer set",
			zap.String("ride_id", rideID), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	keys := []string{offerSetKey(rideID)}
	for _, driverID := range strings.Split(listed, ",") {
		if driverID == "" {
			continue
		}
		keys = append(keys, offerKey(rideID, driverID))
		if driverID == winnerID {
			continue
		}
		c.deps.Pusher.SendToDriver(driverID, &websocket.Message{
			Type:   messageOfferCancelled,
			RideID: rideID,
		})
	}
	if err := c.deps.Offers.Delete(ctx, keys...); err != nil {
		logger.WarnContext(ctx, "failed to delete offer keys",
			zap.String("ride_id", rideID), zap.Error(err))
	}
}
