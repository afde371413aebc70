package rides

import (
	"context"
	"time"

	"github.com/swiftride/dispatch/internal/drivers"
	"github.com/swiftride/dispatch/internal/subscriptions"
	"github.com/swiftride/dispatch/pkg/eventbus"
)

// RepositoryInterface defines ride data access. Status changes go through
// compare-and-swap updates so a rejected transition never mutates anything.
type RepositoryInterface interface {
	Create(ctx context.Context, ride *Ride) error
	GetByID(ctx context.Context, rideID string) (*Ride, error)

	// TransitionStatus moves the ride from → to, stamping the status
	// timestamp. Returns false when the ride was no longer in from.
	TransitionStatus(ctx context.Context, rideID string, from, to Status, at time.Time) (bool, error)

	// AssignDriver is the accept-race CAS: requested/searching →
	// driver_assigned with the driver and ETA set. False means lost.
	AssignDriver(ctx context.Context, rideID, driverID string, etaMinutes int, at time.Time) (bool, error)

	// Cancel moves the ride from → cancelled with actor, reason, and fee.
	Cancel(ctx context.Context, rideID string, from Status, actor Actor, reason string, fee float64, at time.Time) (bool, error)

	// CompleteSettlement commits the completion in one transaction: ride
	// actuals, final fare, eco impact, the rider's eco accumulator, and
	// the subscription allowance debit for subscription rides. False when
	// the ride was not in_progress.
	CompleteSettlement(ctx context.Context, ride *Ride, at time.Time) (bool, error)

	SetPaymentStatus(ctx context.Context, rideID string, status PaymentStatus, paymentID *string) error

	// CreateRating records a rating; false when this rater already rated.
	CreateRating(ctx context.Context, rating *Rating) (bool, error)
}

// Dispatcher is the matching-phase collaborator. The coordinator owns
// driver availability from request until accept or search timeout.
type Dispatcher interface {
	Request(ctx context.Context, ride *Ride) error
	Accept(ctx context.Context, rideID, driverID string) (*Ride, error)
	CancelSearch(ctx context.Context, rideID string)
}

// DriverControl is the slice of the driver service the lifecycle needs.
type DriverControl interface {
	GetByID(ctx context.Context, driverID string) (*drivers.Driver, error)
	Release(ctx context.Context, driverID string) error
	CreditEarnings(ctx context.Context, driverID, rideID string, totalFare float64) (*drivers.Earning, error)
	ApplyRating(ctx context.Context, driverID string, rating int) (*drivers.Driver, error)
}

// SubscriptionSource resolves a rider's coverage at quote and booking time.
type SubscriptionSource interface {
	ActiveForRider(ctx context.Context, riderID string) (*subscriptions.Subscription, error)
}

// EventPublisher publishes lifecycle events. May be absent in tests.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}
