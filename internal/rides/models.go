package rides

import (
	"time"

	"github.com/swiftride/dispatch/internal/eco"
	"github.com/swiftride/dispatch/internal/fare"
	"github.com/swiftride/dispatch/pkg/models"
)

// Status of a ride. Forward-only except for cancellation, which is
// reachable from any non-terminal status.
type Status string

const (
	StatusRequested      Status = "requested"
	StatusSearching      Status = "searching"
	StatusDriverAssigned Status = "driver_assigned"
	StatusDriverArriving Status = "driver_arriving"
	StatusDriverArrived  Status = "driver_arrived"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// PaymentStatus is an independent axis from ride status; a cash ride can be
// completed with payment still pending.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Actor identifies who triggered a cancellation.
type Actor string

const (
	ActorRider  Actor = "rider"
	ActorDriver Actor = "driver"
	ActorSystem Actor = "system"
)

// CancelReasonNoDriver marks a search that timed out with no acceptor.
const CancelReasonNoDriver = "no_driver_found"

// Ride is the central aggregate. Timestamps are set exactly once, on first
// entry to the corresponding status.
type Ride struct {
	ID       string  `json:"id"`
	RiderID  string  `json:"rider_id"`
	DriverID *string `json:"driver_id,omitempty"`

	Pickup          models.Location     `json:"pickup"`
	Destination     models.Location     `json:"destination"`
	VehicleClass    models.VehicleClass `json:"vehicle_class"`
	SpecialRequests string              `json:"special_requests,omitempty"`
	PaymentMethod   string              `json:"payment_method"`

	EstimatedDistanceKm  float64  `json:"estimated_distance_km"`
	EstimatedDurationMin int      `json:"estimated_duration_min"`
	ActualDistanceKm     *float64 `json:"actual_distance_km,omitempty"`
	ActualDurationMin    *int     `json:"actual_duration_min,omitempty"`

	Fare fare.Breakdown `json:"fare"`
	Eco  *eco.Impact    `json:"eco_impact,omitempty"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentID     *string       `json:"payment_id,omitempty"`

	// IsSubscriptionRide is fixed at booking time and never changes, even
	// if the subscription lapses before completion.
	IsSubscriptionRide bool    `json:"is_subscription_ride"`
	SubscriptionID     *string `json:"subscription_id,omitempty"`

	ETAMinutes      int     `json:"eta_minutes,omitempty"`
	CancellationFee float64 `json:"cancellation_fee,omitempty"`
	CancelActor     *Actor  `json:"cancel_actor,omitempty"`
	CancelReason    *string `json:"cancel_reason,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the ride has reached a final status.
func (r *Ride) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// Rating is one party's rating of the other for a completed ride. The
// (ride_id, rater) pair is unique; a second rating attempt is rejected.
type Rating struct {
	ID        string    `json:"id"`
	RideID    string    `json:"ride_id"`
	Rater     Actor     `json:"rater"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
