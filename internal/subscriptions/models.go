package subscriptions

import (
	"time"

	"github.com/swiftride/dispatch/pkg/models"
)

// Status of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Plan is a purchasable prepaid distance package for one vehicle class.
type Plan struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	VehicleClass models.VehicleClass `json:"vehicle_class"`
	AllowanceKm  float64             `json:"allowance_km"`
	Price        float64             `json:"price"`
	Currency     string              `json:"currency"`
	DurationDays int                 `json:"duration_days"`

	// OverageRatePerKm is the rate for distance beyond the allowance.
	// Unused while coverage is all-or-nothing per ride; kept so plans can
	// carry the rate when proration ships.
	OverageRatePerKm float64 `json:"overage_rate_per_km"`

	CreatedAt time.Time `json:"created_at"`
}

// Subscription is a rider's prepaid distance allowance.
type Subscription struct {
	ID           string              `json:"id"`
	RiderID      string              `json:"rider_id"`
	PlanID       string              `json:"plan_id"`
	VehicleClass models.VehicleClass `json:"vehicle_class"`
	Status       Status              `json:"status"`
	RemainingKm  float64             `json:"remaining_km"`
	UsedKm       float64             `json:"used_km"`
	StartsAt     time.Time           `json:"starts_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Covers reports whether this subscription pays for a ride of the given
// class at the given time: active, unexpired, class match, and allowance
// left. Sufficiency for the trip's full distance is NOT checked; coverage
// is all-or-nothing per ride.
func (s *Subscription) Covers(class models.VehicleClass, at time.Time) bool {
	return s.Status == StatusActive &&
		at.Before(s.ExpiresAt) &&
		s.VehicleClass == class &&
		s.RemainingKm > 0
}

// ConsumeDistance deducts a completed ride's distance from the allowance.
// Remaining never goes below zero; UsedKm records the full distance.
func (s *Subscription) ConsumeDistance(distanceKm float64) {
	if distanceKm <= 0 {
		return
	}
	s.UsedKm += distanceKm
	s.RemainingKm -= distanceKm
	if s.RemainingKm < 0 {
		s.RemainingKm = 0
	}
}
