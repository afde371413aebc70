// Package fare computes fare breakdowns from trip geometry and the rider's
// subscription state. The calculator is pure; it reads no external state.
package fare

import (
	"math"
	"time"

	"github.com/swiftride/dispatch/internal/subscriptions"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// Input carries everything Estimate needs to price a trip.
type Input struct {
	DistanceKm   float64
	DurationMin  int
	VehicleClass models.VehicleClass

	// SurgeMultiplier scales base+distance+time fare. Zero means no surge
	// (1.0). The engine never computes surge itself; a pricing service
	// upstream injects it.
	SurgeMultiplier float64

	// Subscription is the rider's subscription, nil when they have none.
	Subscription *subscriptions.Subscription

	// Covered forces the subscription discount regardless of Subscription.
	// Settlement sets it from the ride's booking-time coverage flag, which
	// is immutable even if the subscription lapsed mid-ride.
	Covered bool

	Tip float64
}

// Calculator prices trips from the per-class fare tables.
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a fare calculator.
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// NewCalculatorAt creates a calculator with a fixed clock, for tests.
func NewCalculatorAt(now func() time.Time) *Calculator {
	return &Calculator{now: now}
}

// Estimate prices a trip. The first IncludedKm of the trip is covered by the
// base fare; distance beyond it is charged at the class per-km rate. Time
// fare is reserved for a future time-based policy and is always zero. An
// active subscription covering the class with remaining allowance zeroes the
// whole fare; coverage is all-or-nothing per ride, never prorated against
// the remaining balance.
func (c *Calculator) Estimate(in Input) (*Breakdown, error) {
	if !in.VehicleClass.Valid() {
		return nil, common.NewInvalidInputError("unknown vehicle class: " + string(in.VehicleClass))
	}
	if in.DistanceKm < 0 {
		return nil, common.NewInvalidInputError("distance cannot be negative")
	}
	if in.DurationMin < 0 {
		return nil, common.NewInvalidInputError("duration cannot be negative")
	}
	if in.Tip < 0 {
		return nil, common.NewInvalidInputError("tip cannot be negative")
	}
	surge := in.SurgeMultiplier
	if surge == 0 {
		surge = 1.0
	}
	if surge < 1.0 {
		return nil, common.NewInvalidInputError("surge multiplier must be at least 1.0")
	}

	rate := rateTable[in.VehicleClass]

	distanceFare := 0.0
	if in.DistanceKm > rate.IncludedKm {
		distanceFare = (in.DistanceKm - rate.IncludedKm) * rate.PerKmRate
	}

	timeFare := 0.0
	surgeAmount := (rate.BaseFare + distanceFare + timeFare) * (surge - 1.0)

	discount := 0.0
	if in.Covered || (in.Subscription != nil && in.Subscription.Covers(in.VehicleClass, c.now())) {
		discount = rate.BaseFare + distanceFare + timeFare + surgeAmount
	}

	total := rate.BaseFare + distanceFare + timeFare + surgeAmount - discount + in.Tip
	if total < 0 {
		total = 0
	}

	return &Breakdown{
		BaseFare:             round2(rate.BaseFare),
		DistanceFare:         round2(distanceFare),
		TimeFare:             round2(timeFare),
		SurgeMultiplier:      surge,
		SurgeAmount:          round2(surgeAmount),
		SubscriptionDiscount: round2(discount),
		Tip:                  round2(in.Tip),
		Total:                round2(total),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
