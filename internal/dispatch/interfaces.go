package dispatch

import (
	"context"
	"time"

	"github.com/swiftride/dispatch/internal/drivers"
	"github.com/swiftride/dispatch/internal/geoindex"
	"github.com/swiftride/dispatch/internal/rides"
	"github.com/swiftride/dispatch/pkg/models"
	"github.com/swiftride/dispatch/pkg/websocket"
)

// RideStore is the slice of the ride repository dispatch needs. AssignDriver
// is the compare-and-swap that settles the accept race.
type RideStore interface {
	GetByID(ctx context.Context, rideID string) (*rides.Ride, error)
	TransitionStatus(ctx context.Context, rideID string, from, to rides.Status, at time.Time) (bool, error)
	AssignDriver(ctx context.Context, rideID, driverID string, etaMinutes int, at time.Time) (bool, error)
}

// DriverPool reserves and frees drivers around an assignment.
type DriverPool interface {
	GetByID(ctx context.Context, driverID string) (*drivers.Driver, error)
	TryAssign(ctx context.Context, driverID, rideID string) (bool, error)
	Release(ctx context.Context, driverID string) error
}

// Locator finds eligible drivers around a pickup point.
type Locator interface {
	Nearby(ctx context.Context, lat, lon, radiusKm float64, class models.VehicleClass, limit int) ([]*geoindex.Candidate, error)
}

// Pusher delivers dispatch messages to connected driver clients.
type Pusher interface {
	SendToDriver(driverID string, msg *websocket.Message)
}

// Lifecycle is the ride operation the search timeout needs: a system
// cancellation with the no-driver reason.
type Lifecycle interface {
	Cancel(ctx context.Context, rideID string, actor rides.Actor, reason string) (*rides.Ride, error)
}
