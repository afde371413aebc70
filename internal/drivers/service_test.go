package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/internal/geoindex"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// ========================================
// MOCK REPOSITORY (in-package)
// ========================================

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, driver *Driver) error {
	args := m.Called(ctx, driver)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, driverID string) (*Driver, error) {
	args := m.Called(ctx, driverID)
	d, _ := args.Get(0).(*Driver)
	return d, args.Error(1)
}

func (m *mockRepo) UpdatePresence(ctx context.Context, driverID string, online, available bool) error {
	args := m.Called(ctx, driverID, online, available)
	return args.Error(0)
}

func (m *mockRepo) TryAssign(ctx context.Context, driverID, rideID string) (bool, error) {
	args := m.Called(ctx, driverID, rideID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) Release(ctx context.Context, driverID string, available bool) error {
	args := m.Called(ctx, driverID, available)
	return args.Error(0)
}

func (m *mockRepo) CreateEarning(ctx context.Context, earning *Earning) error {
	args := m.Called(ctx, earning)
	return args.Error(0)
}

func (m *mockRepo) GetEarningsSummary(ctx context.Context, driverID string) (*EarningsSummary, error) {
	args := m.Called(ctx, driverID)
	s, _ := args.Get(0).(*EarningsSummary)
	return s, args.Error(1)
}

func (m *mockRepo) ApplyRating(ctx context.Context, driverID string, star int) (float64, int, error) {
	args := m.Called(ctx, driverID, star)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *mockRepo) GetRatingStats(ctx context.Context, driverID string) (*RatingStats, error) {
	args := m.Called(ctx, driverID)
	s, _ := args.Get(0).(*RatingStats)
	return s, args.Error(1)
}

// ========================================
// MOCK LOCATION INDEX
// ========================================

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Upsert(ctx context.Context, p *geoindex.Presence) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockIndex) Remove(ctx context.Context, driverID string, class models.VehicleClass) error {
	args := m.Called(ctx, driverID, class)
	return args.Error(0)
}

// ========================================
// TEST HELPERS
// ========================================

func approvedDriver() *Driver {
	now := time.Now()
	return &Driver{
		ID:                 "DRV-1",
		Name:               "Asha",
		Phone:              "+911234567890",
		VehicleClass:       models.VehicleClassTwoWheeler,
		VerificationStatus: VerificationApproved,
		Online:             true,
		Available:          true,
		RatingAverage:      4.5,
		RatingCount:        10,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ========================================
// ASSIGNMENT TESTS
// ========================================

func TestTryAssign(t *testing.T) {
	t.Run("winner is pulled from the geo index", func(t *testing.T) {
		repo := new(mockRepo)
		index := new(mockIndex)
		svc := NewService(repo, index)
		driver := approvedDriver()

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("TryAssign", mock.Anything, driver.ID, "RID-1").Return(true, nil).Once()
		index.On("Remove", mock.Anything, driver.ID, driver.VehicleClass).Return(nil).Once()

		won, err := svc.TryAssign(context.Background(), driver.ID, "RID-1")
		require.NoError(t, err)
		assert.True(t, won)
		repo.AssertExpectations(t)
		index.AssertExpectations(t)
	})

	t.Run("loser gets false with no side effects", func(t *testing.T) {
		repo := new(mockRepo)
		index := new(mockIndex)
		svc := NewService(repo, index)
		driver := approvedDriver()

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("TryAssign", mock.Anything, driver.ID, "RID-1").Return(false, nil).Once()

		won, err := svc.TryAssign(context.Background(), driver.ID, "RID-1")
		require.NoError(t, err)
		assert.False(t, won)
		index.AssertNotCalled(t, "Remove")
	})

	t.Run("unknown driver", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))

		repo.On("GetByID", mock.Anything, "DRV-missing").Return((*Driver)(nil), nil).Once()

		_, err := svc.TryAssign(context.Background(), "DRV-missing", "RID-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

// ========================================
// PRESENCE TESTS
// ========================================

func TestSetPresence(t *testing.T) {
	t.Run("going offline removes from geo index", func(t *testing.T) {
		repo := new(mockRepo)
		index := new(mockIndex)
		svc := NewService(repo, index)
		driver := approvedDriver()

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("UpdatePresence", mock.Anything, driver.ID, false, false).Return(nil).Once()
		index.On("Remove", mock.Anything, driver.ID, driver.VehicleClass).Return(nil).Once()

		require.NoError(t, svc.SetPresence(context.Background(), driver.ID, false, false))
		index.AssertExpectations(t)
	})

	t.Run("unapproved driver never stored available", func(t *testing.T) {
		repo := new(mockRepo)
		index := new(mockIndex)
		svc := NewService(repo, index)
		driver := approvedDriver()
		driver.VerificationStatus = VerificationPending

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("UpdatePresence", mock.Anything, driver.ID, true, false).Return(nil).Once()

		require.NoError(t, svc.SetPresence(context.Background(), driver.ID, true, true))
		repo.AssertExpectations(t)
		index.AssertNotCalled(t, "Remove")
	})

	t.Run("offline driver never stored available", func(t *testing.T) {
		repo := new(mockRepo)
		index := new(mockIndex)
		svc := NewService(repo, index)
		driver := approvedDriver()

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("UpdatePresence", mock.Anything, driver.ID, false, false).Return(nil).Once()
		index.On("Remove", mock.Anything, driver.ID, driver.VehicleClass).Return(nil).Once()

		require.NoError(t, svc.SetPresence(context.Background(), driver.ID, false, true))
		repo.AssertExpectations(t)
		index.AssertExpectations(t)
	})

	t.Run("cannot become available mid-ride", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))
		driver := approvedDriver()
		rideID := "RID-1"
		driver.CurrentRideID = &rideID

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()

		err := svc.SetPresence(context.Background(), driver.ID, true, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrConflict)
		repo.AssertNotCalled(t, "UpdatePresence")
	})
}

func TestUpdateLocation(t *testing.T) {
	repo := new(mockRepo)
	index := new(mockIndex)
	svc := NewService(repo, index)
	driver := approvedDriver()

	repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
	index.On("Upsert", mock.Anything, mock.MatchedBy(func(p *geoindex.Presence) bool {
		return p.DriverID == driver.ID &&
			p.VehicleClass == driver.VehicleClass &&
			p.Online && p.Available && p.Approved &&
			p.Rating == driver.RatingAverage
	})).Return(nil).Once()

	require.NoError(t, svc.UpdateLocation(context.Background(), driver.ID, 12.97, 77.59))
	index.AssertExpectations(t)
}

// ========================================
// EARNINGS TESTS
// ========================================

func TestCreditEarnings(t *testing.T) {
	t.Run("splits eighty twenty", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))

		repo.On("CreateEarning", mock.Anything, mock.AnythingOfType("*drivers.Earning")).Return(nil).Once()

		earning, err := svc.CreditEarnings(context.Background(), "DRV-1", "RID-1", 105.0)
		require.NoError(t, err)
		assert.Equal(t, 105.0, earning.GrossAmount)
		assert.Equal(t, 84.0, earning.NetAmount)
		assert.Equal(t, 21.0, earning.Commission)
	})

	t.Run("zero fare ride credits nothing but still records", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))

		repo.On("CreateEarning", mock.Anything, mock.AnythingOfType("*drivers.Earning")).Return(nil).Once()

		earning, err := svc.CreditEarnings(context.Background(), "DRV-1", "RID-1", 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, earning.NetAmount)
	})

	t.Run("negative fare rejected", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))

		_, err := svc.CreditEarnings(context.Background(), "DRV-1", "RID-1", -5)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		repo.AssertNotCalled(t, "CreateEarning")
	})
}

// ========================================
// RATING TESTS
// ========================================

func TestApplyRating(t *testing.T) {
	t.Run("running average update", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))
		driver := approvedDriver() // avg 4.5 over 10 ratings

		// (4.5*10 + 5) / 11 = 4.5454... -> 4.55
		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("ApplyRating", mock.Anything, driver.ID, 5).Return(4.55, 11, nil).Once()

		updated, err := svc.ApplyRating(context.Background(), driver.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, 4.55, updated.RatingAverage)
		assert.Equal(t, 11, updated.RatingCount)
		repo.AssertExpectations(t)
	})

	t.Run("first rating becomes the average", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))
		driver := approvedDriver()
		driver.RatingAverage = 0
		driver.RatingCount = 0

		repo.On("GetByID", mock.Anything, driver.ID).Return(driver, nil).Once()
		repo.On("ApplyRating", mock.Anything, driver.ID, 3).Return(3.0, 1, nil).Once()

		updated, err := svc.ApplyRating(context.Background(), driver.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 3.0, updated.RatingAverage)
	})

	t.Run("out-of-range rating rejected", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, new(mockIndex))

		for _, rating := range []int{0, 6, -1} {
			_, err := svc.ApplyRating(context.Background(), "DRV-1", rating)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		}
		repo.AssertNotCalled(t, "ApplyRating")
	})
}
