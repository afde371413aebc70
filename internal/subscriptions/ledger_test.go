package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// ========================================
// MOCK REPOSITORY (in-package)
// ========================================

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreatePlan(ctx context.Context, plan *Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockRepo) GetPlanByID(ctx context.Context, planID string) (*Plan, error) {
	args := m.Called(ctx, planID)
	plan, _ := args.Get(0).(*Plan)
	return plan, args.Error(1)
}

func (m *mockRepo) ListPlans(ctx context.Context) ([]*Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]*Plan)
	return plans, args.Error(1)
}

func (m *mockRepo) CreateSubscription(ctx context.Context, sub *Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *mockRepo) GetActiveByRider(ctx context.Context, riderID string) (*Subscription, error) {
	args := m.Called(ctx, riderID)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *mockRepo) UpdateUsage(ctx context.Context, sub *Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, subscriptionID string, status Status) error {
	args := m.Called(ctx, subscriptionID, status)
	return args.Error(0)
}

// ========================================
// TEST HELPERS
// ========================================

func newTwoWheelerSubscription() *Subscription {
	now := time.Now()
	return &Subscription{
		ID:           "SUB-test",
		RiderID:      "rider-1",
		PlanID:       "plan-1",
		VehicleClass: models.VehicleClassTwoWheeler,
		Status:       StatusActive,
		RemainingKm:  50,
		UsedKm:       0,
		StartsAt:     now.AddDate(0, 0, -5),
		ExpiresAt:    now.AddDate(0, 0, 25),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ========================================
// COVERS TESTS
// ========================================

func TestCovers(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(sub *Subscription)
		class  models.VehicleClass
		want   bool
	}{
		{
			name:   "active matching subscription covers",
			mutate: func(sub *Subscription) {},
			class:  models.VehicleClassTwoWheeler,
			want:   true,
		},
		{
			name:   "wrong vehicle class",
			mutate: func(sub *Subscription) {},
			class:  models.VehicleClassFourWheeler,
			want:   false,
		},
		{
			name:   "expired subscription",
			mutate: func(sub *Subscription) { sub.ExpiresAt = now.Add(-time.Hour) },
			class:  models.VehicleClassTwoWheeler,
			want:   false,
		},
		{
			name:   "cancelled subscription",
			mutate: func(sub *Subscription) { sub.Status = StatusCancelled },
			class:  models.VehicleClassTwoWheeler,
			want:   false,
		},
		{
			name:   "exhausted allowance",
			mutate: func(sub *Subscription) { sub.RemainingKm = 0 },
			class:  models.VehicleClassTwoWheeler,
			want:   false,
		},
		{
			name:   "low allowance still covers the whole ride",
			mutate: func(sub *Subscription) { sub.RemainingKm = 0.5 },
			class:  models.VehicleClassTwoWheeler,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newTwoWheelerSubscription()
			tt.mutate(sub)
			assert.Equal(t, tt.want, sub.Covers(tt.class, now))
		})
	}
}

// ========================================
// CONSUME TESTS
// ========================================

func TestConsumeDistance(t *testing.T) {
	tests := []struct {
		name          string
		remaining     float64
		used          float64
		distance      float64
		wantRemaining float64
		wantUsed      float64
	}{
		{name: "normal deduction", remaining: 50, used: 0, distance: 10, wantRemaining: 40, wantUsed: 10},
		{name: "exact exhaustion", remaining: 10, used: 90, distance: 10, wantRemaining: 0, wantUsed: 100},
		{name: "over-consumption caps at zero", remaining: 3, used: 97, distance: 12, wantRemaining: 0, wantUsed: 109},
		{name: "zero distance is a no-op", remaining: 50, used: 5, distance: 0, wantRemaining: 50, wantUsed: 5},
		{name: "already at zero stays at zero", remaining: 0, used: 100, distance: 8, wantRemaining: 0, wantUsed: 108},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newTwoWheelerSubscription()
			sub.RemainingKm = tt.remaining
			sub.UsedKm = tt.used

			sub.ConsumeDistance(tt.distance)

			assert.Equal(t, tt.wantRemaining, sub.RemainingKm)
			assert.Equal(t, tt.wantUsed, sub.UsedKm)
			assert.GreaterOrEqual(t, sub.RemainingKm, 0.0)
		})
	}
}

func TestLedgerConsume(t *testing.T) {
	t.Run("persists updated counters", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)
		sub := newTwoWheelerSubscription()

		repo.On("GetByID", mock.Anything, sub.ID).Return(sub, nil).Once()
		repo.On("UpdateUsage", mock.Anything, mock.AnythingOfType("*subscriptions.Subscription")).Return(nil).Once()

		updated, err := ledger.Consume(context.Background(), sub.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 40.0, updated.RemainingKm)
		assert.Equal(t, 10.0, updated.UsedKm)
		repo.AssertExpectations(t)
	})

	t.Run("negative distance rejected", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)

		_, err := ledger.Consume(context.Background(), "SUB-test", -1)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		repo.AssertNotCalled(t, "GetByID")
	})

	t.Run("unknown subscription", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)

		repo.On("GetByID", mock.Anything, "SUB-missing").Return((*Subscription)(nil), nil).Once()

		_, err := ledger.Consume(context.Background(), "SUB-missing", 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

// ========================================
// SUBSCRIBE TESTS
// ========================================

func TestLedgerSubscribe(t *testing.T) {
	plan := &Plan{
		ID:           "plan-1",
		Name:         "City Saver",
		VehicleClass: models.VehicleClassTwoWheeler,
		AllowanceKm:  100,
		Price:        499,
		Currency:     "INR",
		DurationDays: 30,
	}

	t.Run("creates subscription from plan", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)

		repo.On("GetPlanByID", mock.Anything, plan.ID).Return(plan, nil).Once()
		repo.On("GetActiveByRider", mock.Anything, "rider-1").Return((*Subscription)(nil), nil).Once()
		repo.On("CreateSubscription", mock.Anything, mock.AnythingOfType("*subscriptions.Subscription")).Return(nil).Once()

		sub, err := ledger.Subscribe(context.Background(), "rider-1", plan.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status)
		assert.Equal(t, plan.AllowanceKm, sub.RemainingKm)
		assert.Equal(t, 0.0, sub.UsedKm)
		assert.Equal(t, plan.VehicleClass, sub.VehicleClass)
		assert.True(t, sub.ExpiresAt.After(sub.StartsAt))
		repo.AssertExpectations(t)
	})

	t.Run("rejects a second active subscription", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)

		repo.On("GetPlanByID", mock.Anything, plan.ID).Return(plan, nil).Once()
		repo.On("GetActiveByRider", mock.Anything, "rider-1").Return(newTwoWheelerSubscription(), nil).Once()

		_, err := ledger.Subscribe(context.Background(), "rider-1", plan.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("plan load failure", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)

		repo.On("GetPlanByID", mock.Anything, plan.ID).Return((*Plan)(nil), errors.New("db down")).Once()

		_, err := ledger.Subscribe(context.Background(), "rider-1", plan.ID)
		require.Error(t, err)
	})
}

// ========================================
// CANCELLATION TESTS
// ========================================

func TestLedgerCancelSubscription(t *testing.T) {
	t.Run("forfeits the remaining allowance", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)
		sub := newTwoWheelerSubscription()

		repo.On("GetByID", mock.Anything, sub.ID).Return(sub, nil).Once()
		repo.On("UpdateStatus", mock.Anything, sub.ID, StatusCancelled).Return(nil).Once()

		cancelled, err := ledger.CancelSubscription(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		repo.AssertExpectations(t)
	})

	t.Run("already cancelled is a conflict", func(t *testing.T) {
		repo := new(mockRepo)
		ledger := NewLedger(repo)
		sub := newTwoWheelerSubscription()
		sub.Status = StatusCancelled

		repo.On("GetByID", mock.Anything, sub.ID).Return(sub, nil).Once()

		_, err := ledger.CancelSubscription(context.Background(), sub.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrConflict)
		repo.AssertNotCalled(t, "UpdateStatus")
	})
}
