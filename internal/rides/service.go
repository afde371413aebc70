// Package rides owns the ride aggregate and its lifecycle: quoting,
// booking, status transitions, completion settlement, cancellation, and
// rating. Matching is delegated to the Dispatcher collaborator.
package rides

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/internal/eco"
	"github.com/swiftride/dispatch/internal/fare"
	"github.com/swiftride/dispatch/internal/notifications"
	"github.com/swiftride/dispatch/internal/payments"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/eventbus"
	"github.com/swiftride/dispatch/pkg/geo"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/metrics"
	"github.com/swiftride/dispatch/pkg/models"
)

const (
	// cancellationFee is the flat fee charged when a rider or driver
	// cancels after a driver was assigned. System cancellations are free.
	cancellationFee = 20.0

	paymentMethodCash = "cash"
	fareCurrency      = "INR"
)

// Service handles ride business logic
type Service struct {
	repo       RepositoryInterface
	fares      *fare.Calculator
	subs       SubscriptionSource
	driverCtl  DriverControl
	notifier   notifications.Notifier
	gateway    payments.Gateway
	events     EventPublisher
	dispatcher Dispatcher
}

// NewService creates a new ride service. The dispatcher is attached
// afterwards with SetDispatcher because the coordinator needs the service
// for its timeout path.
func NewService(
	repo RepositoryInterface,
	fares *fare.Calculator,
	subs SubscriptionSource,
	driverCtl DriverControl,
	notifier notifications.Notifier,
	gateway payments.Gateway,
	events EventPublisher,
) *Service {
	return &Service{
		repo:      repo,
		fares:     fares,
		subs:      subs,
		driverCtl: driverCtl,
		notifier:  notifier,
		gateway:   gateway,
		events:    events,
	}
}

// SetDispatcher attaches the matching collaborator.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// ========================================
// QUOTE
// ========================================

// QuoteRequest carries trip geometry for an estimate.
type QuoteRequest struct {
	RiderID      string              `json:"rider_id" binding:"required"`
	VehicleClass models.VehicleClass `json:"vehicle_class" binding:"required,vehicle_class"`
	Pickup       models.Location     `json:"pickup" binding:"required"`
	Destination  models.Location     `json:"destination" binding:"required"`
}

// Quote is a fare/eco estimate for a prospective trip.
type Quote struct {
	DistanceKm  float64         `json:"distance_km"`
	DurationMin int             `json:"duration_min"`
	Fare        *fare.Breakdown `json:"fare"`
	EcoImpact   *eco.Impact     `json:"eco_impact"`
}

// GetQuote prices a prospective trip off straight-line distance. The
// rider's subscription is consulted but not consumed.
func (s *Service) GetQuote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	if err := validateGeometry(req.Pickup, req.Destination); err != nil {
		return nil, err
	}

	distance := geo.Haversine(
		req.Pickup.Latitude, req.Pickup.Longitude,
		req.Destination.Latitude, req.Destination.Longitude,
	)
	duration := geo.EstimateDuration(distance)

	sub, err := s.subs.ActiveForRider(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.fares.Estimate(fare.Input{
		DistanceKm:   distance,
		DurationMin:  duration,
		VehicleClass: req.VehicleClass,
		Subscription: sub,
	})
	if err != nil {
		return nil, err
	}

	impact, err := eco.ForDistance(distance)
	if err != nil {
		return nil, err
	}

	return &Quote{
		DistanceKm:  distance,
		DurationMin: duration,
		Fare:        breakdown,
		EcoImpact:   impact,
	}, nil
}

// ========================================
// BOOKING
// ========================================

// BookRequest creates a ride.
type BookRequest struct {
	RiderID         string              `json:"rider_id" binding:"required"`
	VehicleClass    models.VehicleClass `json:"vehicle_class" binding:"required,vehicle_class"`
	Pickup          models.Location     `json:"pickup" binding:"required"`
	Destination     models.Location     `json:"destination" binding:"required"`
	SpecialRequests string              `json:"special_requests"`
	PaymentMethod   string              `json:"payment_method"`
}

// Book creates a ride in requested state and hands it to dispatch. The
// subscription coverage flag is decided here and frozen for the ride's
// lifetime.
func (s *Service) Book(ctx context.Context, req *BookRequest) (*Ride, error) {
	quote, err := s.GetQuote(ctx, &QuoteRequest{
		RiderID:      req.RiderID,
		VehicleClass: req.VehicleClass,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
	})
	if err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = paymentMethodCash
	}

	now := time.Now()
	ride := &Ride{
		ID:                   "RID-" + uuid.New().String(),
		RiderID:              req.RiderID,
		Pickup:               req.Pickup,
		Destination:          req.Destination,
		VehicleClass:         req.VehicleClass,
		SpecialRequests:      req.SpecialRequests,
		PaymentMethod:        paymentMethod,
		EstimatedDistanceKm:  quote.DistanceKm,
		EstimatedDurationMin: quote.DurationMin,
		Fare:                 *quote.Fare,
		Status:               StatusRequested,
		PaymentStatus:        PaymentPending,
		RequestedAt:          now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if quote.Fare.SubscriptionDiscount > 0 {
		sub, err := s.subs.ActiveForRider(ctx, req.RiderID)
		if err == nil && sub != nil {
			ride.IsSubscriptionRide = true
			ride.SubscriptionID = &sub.ID
		}
	}

	if err := s.repo.Create(ctx, ride); err != nil {
		return nil, common.NewInternalError("failed to create ride", err)
	}

	logger.InfoContext(ctx, "ride booked",
		zap.String("ride_id", ride.ID),
		zap.String("rider_id", ride.RiderID),
		zap.String("vehicle_class", string(ride.VehicleClass)),
		zap.Float64("estimated_fare", ride.Fare.Total),
		zap.Bool("subscription_ride", ride.IsSubscriptionRide),
	)
	s.publish(ctx, eventbus.SubjectRideRequested, "ride_requested", eventbus.RideRequestedEvent{
		RideID:          ride.ID,
		RiderID:         ride.RiderID,
		VehicleClass:    string(ride.VehicleClass),
		PickupLatitude:  ride.Pickup.Latitude,
		PickupLongitude: ride.Pickup.Longitude,
		EstimatedFare:   ride.Fare.Total,
		RequestedAt:     ride.RequestedAt,
	})

	if s.dispatcher != nil {
		if err := s.dispatcher.Request(ctx, ride); err != nil {
			logger.WarnContext(ctx, "dispatch request failed",
				zap.String("ride_id", ride.ID), zap.Error(err))
		} else if fresh, err := s.repo.GetByID(ctx, ride.ID); err == nil && fresh != nil {
			ride = fresh
		}
	}
	return ride, nil
}

// GetByID returns a ride.
func (s *Service) GetByID(ctx context.Context, rideID string) (*Ride, error) {
	ride, err := s.repo.GetByID(ctx, rideID)
	if err != nil {
		return nil, common.NewInternalError("failed to load ride", err)
	}
	if ride == nil {
		return nil, common.NewNotFoundError("ride not found", nil)
	}
	return ride, nil
}

// ========================================
// ADVANCE
// ========================================

// Advance moves the ride one step forward: driver_arriving,
// driver_arrived, or in_progress. Completion and cancellation have their
// own operations with richer payloads.
func (s *Service) Advance(ctx context.Context, rideID string, target Status) (*Ride, []string, error) {
	ride, err := s.GetByID(ctx, rideID)
	if err != nil {
		return nil, nil, err
	}

	switch target {
	case StatusDriverArriving, StatusDriverArrived, StatusInProgress:
	case StatusCompleted, StatusCancelled:
		return nil, nil, common.NewInvalidInputError("completion and cancellation have dedicated operations")
	default:
		if !ValidStatus(target) {
			return nil, nil, common.NewInvalidInputError("unknown ride status: " + string(target))
		}
		return nil, nil, common.NewInvalidTransitionError(string(ride.Status), string(target))
	}
	if err := CheckTransition(ride.Status, target); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	moved, err := s.repo.TransitionStatus(ctx, rideID, ride.Status, target, now)
	if err != nil {
		return nil, nil, common.NewInternalError("failed to update ride status", err)
	}
	if !moved {
		// Lost a race with a concurrent transition; report against the
		// fresh status without having changed anything.
		fresh, ferr := s.GetByID(ctx, rideID)
		if ferr != nil {
			return nil, nil, ferr
		}
		return nil, nil, common.NewInvalidTransitionError(string(fresh.Status), string(target))
	}

	var warnings []string
	if target == StatusDriverArrived {
		if err := s.notifier.Send(ctx, ride.RiderID, notifications.TemplateDriverArrived,
			map[string]string{"ride_id": ride.ID}); err != nil {
			logger.WarnContext(ctx, "arrival notification failed",
				zap.String("ride_id", ride.ID), zap.Error(err))
			warnings = append(warnings, "arrival notification failed")
		}
	}
	if target == StatusInProgress && ride.DriverID != nil {
		s.publish(ctx, eventbus.SubjectRideStarted, "ride_started", eventbus.RideStartedEvent{
			RideID:    ride.ID,
			DriverID:  *ride.DriverID,
			StartedAt: now,
		})
	}

	return s.mustReload(ctx, rideID, ride), warnings, nil
}

// ========================================
// COMPLETION SETTLEMENT
// ========================================

// CompleteRequest carries the trip actuals recorded by the driver app.
type CompleteRequest struct {
	ActualDistanceKm  *float64 `json:"actual_distance_km"`
	ActualDurationMin *int     `json:"actual_duration_min"`
	Tip               float64  `json:"tip"`
}

// Complete settles an in-progress ride: the final fare is recomputed off
// the actual distance when provided, eco impact and the rider's
// accumulator are credited, the subscription allowance is debited in the
// same transaction, the driver earns their share and is freed, and payment
// is collected for non-cash methods. Side-effect failures after the
// settlement commits surface as warnings, never as a rolled-back ride.
func (s *Service) Complete(ctx context.Context, rideID string, req *CompleteRequest) (*Ride, []string, error) {
	ride, err := s.GetByID(ctx, rideID)
	if err != nil {
		return nil, nil, err
	}
	if err := CheckTransition(ride.Status, StatusCompleted); err != nil {
		return nil, nil, err
	}

	distance := ride.EstimatedDistanceKm
	if req.ActualDistanceKm != nil {
		if *req.ActualDistanceKm < 0 {
			return nil, nil, common.NewInvalidInputError("distance cannot be negative")
		}
		distance = *req.ActualDistanceKm
	}
	duration := ride.EstimatedDurationMin
	if req.ActualDurationMin != nil {
		if *req.ActualDurationMin < 0 {
			return nil, nil, common.NewInvalidInputError("duration cannot be negative")
		}
		duration = *req.ActualDurationMin
	}

	tip := ride.Fare.Tip
	if req.Tip > 0 {
		tip = req.Tip
	}

	finalFare, err := s.fares.Estimate(fare.Input{
		DistanceKm:      distance,
		DurationMin:     duration,
		VehicleClass:    ride.VehicleClass,
		SurgeMultiplier: ride.Fare.SurgeMultiplier,
		Covered:         ride.IsSubscriptionRide,
		Tip:             tip,
	})
	if err != nil {
		return nil, nil, err
	}
	impact, err := eco.ForDistance(distance)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	ride.ActualDistanceKm = &distance
	ride.ActualDurationMin = &duration
	ride.Fare = *finalFare
	ride.Eco = impact

	committed, err := s.repo.CompleteSettlement(ctx, ride, now)
	if err != nil {
		return nil, nil, common.NewInternalError("failed to settle ride", err)
	}
	if !committed {
		fresh, ferr := s.GetByID(ctx, rideID)
		if ferr != nil {
			return nil, nil, ferr
		}
		return nil, nil, common.NewInvalidTransitionError(string(fresh.Status), string(StatusCompleted))
	}

	var warnings []string
	var driverEarnings float64
	if ride.DriverID != nil {
		if earning, err := s.driverCtl.CreditEarnings(ctx, *ride.DriverID, ride.ID, finalFare.Total); err != nil {
			logger.ErrorContext(ctx, "failed to credit driver earnings",
				zap.String("ride_id", ride.ID), zap.Error(err))
			warnings = append(warnings, "driver earnings credit failed")
		} else {
			driverEarnings = earning.NetAmount
		}
		if err := s.driverCtl.Release(ctx, *ride.DriverID); err != nil {
			logger.ErrorContext(ctx, "failed to release driver",
				zap.String("ride_id", ride.ID), zap.Error(err))
			warnings = append(warnings, "driver release failed")
		}
	}

	warnings = append(warnings, s.collectPayment(ctx, ride, finalFare.Total)...)

	if err := s.notifier.Send(ctx, ride.RiderID, notifications.TemplateRideCompleted, map[string]string{
		"ride_id":      ride.ID,
		"distance_km":  formatFloat(distance),
		"total_fare":   formatFloat(finalFare.Total),
		"co2_saved_kg": formatFloat(impact.CO2SavedKg),
	}); err != nil {
		logger.WarnContext(ctx, "completion notification failed",
			zap.String("ride_id", ride.ID), zap.Error(err))
		warnings = append(warnings, "completion notification failed")
	}

	driverID := ""
	if ride.DriverID != nil {
		driverID = *ride.DriverID
	}
	s.publish(ctx, eventbus.SubjectRideCompleted, "ride_completed", eventbus.RideCompletedEvent{
		RideID:         ride.ID,
		DriverID:       driverID,
		DistanceKm:     distance,
		TotalFare:      finalFare.Total,
		DriverEarnings: driverEarnings,
		CO2SavedKg:     impact.CO2SavedKg,
		CompletedAt:    now,
	})
	metrics.RidesCompleted.Inc()

	logger.InfoContext(ctx, "ride completed",
		zap.String("ride_id", ride.ID),
		zap.Float64("actual_distance_km", distance),
		zap.Float64("total_fare", finalFare.Total),
		zap.Float64("co2_saved_kg", impact.CO2SavedKg),
	)
	return s.mustReload(ctx, rideID, ride), warnings, nil
}

// collectPayment charges non-cash rides. A gateway failure leaves payment
// pending and surfaces as a warning; the completed transition stands.
func (s *Service) collectPayment(ctx context.Context, ride *Ride, total float64) []string {
	if total == 0 {
		if err := s.repo.SetPaymentStatus(ctx, ride.ID, PaymentCompleted, nil); err != nil {
			logger.WarnContext(ctx, "failed to mark zero fare as paid",
				zap.String("ride_id", ride.ID), zap.Error(err))
		}
		return nil
	}
	if ride.PaymentMethod == paymentMethodCash {
		// Cash is collected out of band; payment stays pending here.
		return nil
	}

	result, err := s.gateway.Charge(ctx, &payments.ChargeRequest{
		Amount:   total,
		Currency: fareCurrency,
		Method:   ride.PaymentMethod,
		Metadata: map[string]string{"ride_id": ride.ID},
	})
	if err != nil {
		logger.ErrorContext(ctx, "payment charge failed",
			zap.String("ride_id", ride.ID), zap.Error(err))
		return []string{"payment charge failed, payment remains pending"}
	}

	if err := s.repo.SetPaymentStatus(ctx, ride.ID, PaymentCompleted, &result.PaymentID); err != nil {
		logger.ErrorContext(ctx, "failed to record payment",
			zap.String("ride_id", ride.ID), zap.Error(err))
		return []string{"payment collected but status update failed"}
	}
	return nil
}

// ========================================
// CANCELLATION
// ========================================

// Cancel moves a non-terminal ride to cancelled. The flat fee applies only
// when a driver was already assigned and the cancellation is not the
// system's own (search timeout).
func (s *Service) Cancel(ctx context.Context, rideID string, actor Actor, reason string) (*Ride, error) {
	switch actor {
	case ActorRider, ActorDriver, ActorSystem:
	default:
		return nil, common.NewInvalidInputError("unknown cancel actor: " + string(actor))
	}

	ride, err := s.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(ride.Status, StatusCancelled); err != nil {
		return nil, err
	}

	fee := 0.0
	if actor != ActorSystem && ride.Status != StatusRequested && ride.Status != StatusSearching {
		fee = cancellationFee
	}

	now := time.Now()
	moved, err := s.repo.Cancel(ctx, rideID, ride.Status, actor, reason, fee, now)
	if err != nil {
		return nil, common.NewInternalError("failed to cancel ride", err)
	}
	if !moved {
		fresh, ferr := s.GetByID(ctx, rideID)
		if ferr != nil {
			return nil, ferr
		}
		if fresh.Status == StatusCancelled {
			return fresh, nil
		}
		return nil, common.NewInvalidTransitionError(string(fresh.Status), string(StatusCancelled))
	}

	if s.dispatcher != nil && (ride.Status == StatusRequested || ride.Status == StatusSearching) {
		s.dispatcher.CancelSearch(ctx, rideID)
	}
	if ride.DriverID != nil {
		if err := s.driverCtl.Release(ctx, *ride.DriverID); err != nil {
			logger.ErrorContext(ctx, "failed to release driver on cancel",
				zap.String("ride_id", rideID), zap.Error(err))
		}
	}

	template := notifications.TemplateRideCancelled
	if reason == CancelReasonNoDriver {
		template = notifications.TemplateNoDriverFound
	}
	if err := s.notifier.Send(ctx, ride.RiderID, template, map[string]string{
		"ride_id": ride.ID,
		"reason":  reason,
	}); err != nil {
		logger.WarnContext(ctx, "cancellation notification failed",
			zap.String("ride_id", rideID), zap.Error(err))
	}

	s.publish(ctx, eventbus.SubjectRideCancelled, "ride_cancelled", eventbus.RideCancelledEvent{
		RideID:          ride.ID,
		Actor:           string(actor),
		Reason:          reason,
		CancellationFee: fee,
		CancelledAt:     now,
	})
	metrics.RidesCancelled.WithLabelValues(string(actor)).Inc()

	logger.InfoContext(ctx, "ride cancelled",
		zap.String("ride_id", rideID),
		zap.String("actor", string(actor)),
		zap.String("reason", reason),
		zap.Float64("cancellation_fee", fee),
	)
	return s.mustReload(ctx, rideID, ride), nil
}

// ========================================
// RATING
// ========================================

// Rate records a 1-5 rating for a completed ride, once per rater. Rider
// ratings feed the driver's running average and histogram.
func (s *Service) Rate(ctx context.Context, rideID string, rater Actor, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return common.NewInvalidInputError("rating must be between 1 and 5")
	}
	if rater != ActorRider && rater != ActorDriver {
		return common.NewInvalidInputError("rater must be rider or driver")
	}

	ride, err := s.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != StatusCompleted {
		return common.NewConflictError("only completed rides can be rated")
	}

	created, err := s.repo.CreateRating(ctx, &Rating{
		ID:        "RTG-" + uuid.New().String(),
		RideID:    rideID,
		Rater:     rater,
		Rating:    rating,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return common.NewInternalError("failed to record rating", err)
	}
	if !created {
		return common.NewConflictError("ride already rated by this party")
	}

	if rater == ActorRider && ride.DriverID != nil {
		if _, err := s.driverCtl.ApplyRating(ctx, *ride.DriverID, rating); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "ride rated",
		zap.String("ride_id", rideID),
		zap.String("rater", string(rater)),
		zap.Int("rating", rating),
	)
	return nil
}

// ========================================
// HELPERS
// ========================================

func (s *Service) publish(ctx context.Context, subject, eventType string, data interface{}) {
	if s.events == nil {
		return
	}
	event, err := eventbus.NewEvent(eventType, "dispatch-engine", data)
	if err != nil {
		logger.WarnContext(ctx, "failed to build event", zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event",
			zap.String("subject", subject), zap.Error(err))
	}
}

// mustReload returns the fresh ride when possible, falling back to the
// locally mutated copy.
func (s *Service) mustReload(ctx context.Context, rideID string, fallback *Ride) *Ride {
	fresh, err := s.repo.GetByID(ctx, rideID)
	if err != nil || fresh == nil {
		return fallback
	}
	return fresh
}

func validateGeometry(pickup, destination models.Location) error {
	for _, loc := range []models.Location{pickup, destination} {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return common.NewInvalidInputError("coordinates out of range")
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
