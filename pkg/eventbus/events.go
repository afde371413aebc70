package eventbus

import "time"

// Subjects for ride lifecycle events.
const (
	SubjectRideRequested = "rides.requested"
	SubjectRideAssigned  = "rides.assigned"
	SubjectRideStarted   = "rides.started"
	SubjectRideCompleted = "rides.completed"
	SubjectRideCancelled = "rides.cancelled"

	SubjectDriverLocation = "drivers.location"
)

// RideRequestedEvent is published when a booking enters the search phase.
type RideRequestedEvent struct {
	RideID          string    `json:"ride_id"`
	RiderID         string    `json:"rider_id"`
	VehicleClass    string    `json:"vehicle_class"`
	PickupLatitude  float64   `json:"pickup_latitude"`
	PickupLongitude float64   `json:"pickup_longitude"`
	EstimatedFare   float64   `json:"estimated_fare"`
	RequestedAt     time.Time `json:"requested_at"`
}

// RideAssignedEvent is published when a driver wins the accept race.
type RideAssignedEvent struct {
	RideID     string    `json:"ride_id"`
	DriverID   string    `json:"driver_id"`
	ETAMinutes int       `json:"eta_minutes"`
	AssignedAt time.Time `json:"assigned_at"`
}

// RideStartedEvent is published when a ride enters in_progress.
type RideStartedEvent struct {
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id"`
	StartedAt time.Time `json:"started_at"`
}

// RideCompletedEvent is published after completion settlement commits.
type RideCompletedEvent struct {
	RideID         string    `json:"ride_id"`
	DriverID       string    `json:"driver_id"`
	DistanceKm     float64   `json:"distance_km"`
	TotalFare      float64   `json:"total_fare"`
	DriverEarnings float64   `json:"driver_earnings"`
	CO2SavedKg     float64   `json:"co2_saved_kg"`
	CompletedAt    time.Time `json:"completed_at"`
}

// RideCancelledEvent is published when a ride reaches the cancelled state.
type RideCancelledEvent struct {
	RideID          string    `json:"ride_id"`
	Actor           string    `json:"actor"`
	Reason          string    `json:"reason"`
	CancellationFee float64   `json:"cancellation_fee"`
	CancelledAt     time.Time `json:"cancelled_at"`
}
