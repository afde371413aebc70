package fare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/internal/subscriptions"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testCalculator() *Calculator {
	return NewCalculatorAt(func() time.Time { return testNow })
}

func activeSubscription(class models.VehicleClass, remainingKm float64) *subscriptions.Subscription {
	return &subscriptions.Subscription{
		ID:           "SUB-test",
		RiderID:      "rider-1",
		VehicleClass: class,
		Status:       subscriptions.StatusActive,
		RemainingKm:  remainingKm,
		StartsAt:     testNow.AddDate(0, 0, -10),
		ExpiresAt:    testNow.AddDate(0, 0, 20),
	}
}

// ========================================
// ESTIMATE TESTS
// ========================================

func TestEstimate(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		check func(t *testing.T, b *Breakdown)
	}{
		{
			name: "two-wheeler under included distance pays base only",
			in: Input{
				DistanceKm:   0.5,
				DurationMin:  2,
				VehicleClass: models.VehicleClassTwoWheeler,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 20.0, b.BaseFare)
				assert.Equal(t, 0.0, b.DistanceFare)
				assert.Equal(t, 0.0, b.TimeFare)
				assert.Equal(t, 20.0, b.Total)
			},
		},
		{
			name: "two-wheeler exactly at included distance",
			in: Input{
				DistanceKm:   1.0,
				DurationMin:  3,
				VehicleClass: models.VehicleClassTwoWheeler,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 0.0, b.DistanceFare)
				assert.Equal(t, 20.0, b.Total)
			},
		},
		{
			name: "four-wheeler 7 km without subscription",
			in: Input{
				DistanceKm:   7,
				DurationMin:  21,
				VehicleClass: models.VehicleClassFourWheeler,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 30.0, b.BaseFare)
				assert.Equal(t, 75.0, b.DistanceFare)
				assert.Equal(t, 0.0, b.TimeFare)
				assert.Equal(t, 105.0, b.Total)
			},
		},
		{
			name: "time fare stays zero regardless of duration",
			in: Input{
				DistanceKm:   3,
				DurationMin:  240,
				VehicleClass: models.VehicleClassTwoWheeler,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 0.0, b.TimeFare)
				assert.Equal(t, 40.0, b.Total)
			},
		},
		{
			name: "surge multiplier scales the metered fare",
			in: Input{
				DistanceKm:      7,
				DurationMin:     21,
				VehicleClass:    models.VehicleClassFourWheeler,
				SurgeMultiplier: 1.5,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 52.5, b.SurgeAmount)
				assert.Equal(t, 157.5, b.Total)
			},
		},
		{
			name: "covering subscription zeroes the fare",
			in: Input{
				DistanceKm:   10,
				DurationMin:  30,
				VehicleClass: models.VehicleClassTwoWheeler,
				Subscription: activeSubscription(models.VehicleClassTwoWheeler, 50),
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, b.BaseFare+b.DistanceFare, b.SubscriptionDiscount)
				assert.Equal(t, 0.0, b.Total)
			},
		},
		{
			name: "subscription covers even when distance exceeds the balance",
			in: Input{
				DistanceKm:   30,
				DurationMin:  90,
				VehicleClass: models.VehicleClassTwoWheeler,
				Subscription: activeSubscription(models.VehicleClassTwoWheeler, 2),
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 0.0, b.Total)
			},
		},
		{
			name: "subscription for the other class does not apply",
			in: Input{
				DistanceKm:   7,
				DurationMin:  21,
				VehicleClass: models.VehicleClassFourWheeler,
				Subscription: activeSubscription(models.VehicleClassTwoWheeler, 50),
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 0.0, b.SubscriptionDiscount)
				assert.Equal(t, 105.0, b.Total)
			},
		},
		{
			name: "exhausted subscription does not apply",
			in: Input{
				DistanceKm:   5,
				DurationMin:  15,
				VehicleClass: models.VehicleClassTwoWheeler,
				Subscription: activeSubscription(models.VehicleClassTwoWheeler, 0),
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 0.0, b.SubscriptionDiscount)
				assert.Equal(t, 60.0, b.Total)
			},
		},
		{
			name: "tip survives a full subscription discount",
			in: Input{
				DistanceKm:   5,
				DurationMin:  15,
				VehicleClass: models.VehicleClassTwoWheeler,
				Subscription: activeSubscription(models.VehicleClassTwoWheeler, 50),
				Tip:          15,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 15.0, b.Total)
			},
		},
		{
			name: "surge is covered by the subscription discount",
			in: Input{
				DistanceKm:      5,
				DurationMin:     15,
				VehicleClass:    models.VehicleClassTwoWheeler,
				SurgeMultiplier: 2.0,
				Subscription:    activeSubscription(models.VehicleClassTwoWheeler, 50),
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 60.0, b.SurgeAmount)
				assert.Equal(t, 120.0, b.SubscriptionDiscount)
				assert.Equal(t, 0.0, b.Total)
			},
		},
		{
			name: "booking-time coverage flag discounts without a live subscription",
			in: Input{
				DistanceKm:   12,
				DurationMin:  36,
				VehicleClass: models.VehicleClassTwoWheeler,
				Covered:      true,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 130.0, b.SubscriptionDiscount)
				assert.Equal(t, 0.0, b.Total)
			},
		},
		{
			name: "zero distance still pays base fare",
			in: Input{
				DistanceKm:   0,
				DurationMin:  0,
				VehicleClass: models.VehicleClassFourWheeler,
			},
			check: func(t *testing.T, b *Breakdown) {
				assert.Equal(t, 30.0, b.Total)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := testCalculator().Estimate(tt.in)
			require.NoError(t, err)
			require.NotNil(t, b)
			assert.GreaterOrEqual(t, b.Total, 0.0)
			tt.check(t, b)
		})
	}
}

func TestEstimateInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "unknown vehicle class", in: Input{DistanceKm: 1, VehicleClass: "rickshaw"}},
		{name: "empty vehicle class", in: Input{DistanceKm: 1}},
		{name: "negative distance", in: Input{DistanceKm: -1, VehicleClass: models.VehicleClassTwoWheeler}},
		{name: "negative duration", in: Input{DistanceKm: 1, DurationMin: -5, VehicleClass: models.VehicleClassTwoWheeler}},
		{name: "negative tip", in: Input{DistanceKm: 1, VehicleClass: models.VehicleClassTwoWheeler, Tip: -2}},
		{name: "surge below one", in: Input{DistanceKm: 1, VehicleClass: models.VehicleClassTwoWheeler, SurgeMultiplier: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := testCalculator().Estimate(tt.in)
			require.Error(t, err)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

// An expired subscription must not discount even with remaining allowance.
func TestEstimateExpiredSubscription(t *testing.T) {
	sub := activeSubscription(models.VehicleClassTwoWheeler, 50)
	sub.ExpiresAt = testNow.Add(-time.Minute)

	b, err := testCalculator().Estimate(Input{
		DistanceKm:   5,
		DurationMin:  15,
		VehicleClass: models.VehicleClassTwoWheeler,
		Subscription: sub,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.SubscriptionDiscount)
	assert.Equal(t, 60.0, b.Total)
}
