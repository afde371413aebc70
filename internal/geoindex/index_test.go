package geoindex

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// ========================================
// MOCK REDIS CLIENT (in-package)
// ========================================

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *mockRedis) SetIfNotExists(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *mockRedis) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockRedis) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *mockRedis) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

func (m *mockRedis) GeoAdd(ctx context.Context, key string, longitude, latitude float64, member string) error {
	args := m.Called(ctx, key, longitude, latitude, member)
	return args.Error(0)
}

func (m *mockRedis) GeoRadius(ctx context.Context, key string, longitude, latitude, radiusKm float64, count int) ([]string, error) {
	args := m.Called(ctx, key, longitude, latitude, radiusKm, count)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockRedis) GeoRemove(ctx context.Context, key string, member string) error {
	args := m.Called(ctx, key, member)
	return args.Error(0)
}

func (m *mockRedis) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ========================================
// TEST HELPERS
// ========================================

// Coordinates roughly 1.3 km apart along one avenue.
const (
	originLat = 12.9716
	originLon = 77.5946
)

func presenceJSON(t *testing.T, p *Presence) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return string(data)
}

func eligiblePresence(driverID string, lat, lon, rating float64) *Presence {
	return &Presence{
		DriverID:     driverID,
		VehicleClass: models.VehicleClassTwoWheeler,
		Latitude:     lat,
		Longitude:    lon,
		Rating:       rating,
		Online:       true,
		Available:    true,
		Approved:     true,
		UpdatedAt:    time.Now(),
	}
}

// ========================================
// UPSERT TESTS
// ========================================

func TestUpsert(t *testing.T) {
	t.Run("online driver joins the geo set", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)
		p := eligiblePresence("driver-1", originLat, originLon, 4.8)

		r.On("SetWithExpiration", mock.Anything, "driver:presence:driver-1", mock.Anything, presenceTTL).Return(nil).Once()
		r.On("GeoAdd", mock.Anything, "drivers:geo:two_wheeler", originLon, originLat, "driver-1").Return(nil).Once()

		require.NoError(t, idx.Upsert(context.Background(), p))
		assert.NotEmpty(t, p.H3Cell)
		r.AssertExpectations(t)
	})

	t.Run("offline driver is removed from the geo set", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)
		p := eligiblePresence("driver-1", originLat, originLon, 4.8)
		p.Online = false

		r.On("SetWithExpiration", mock.Anything, "driver:presence:driver-1", mock.Anything, presenceTTL).Return(nil).Once()
		r.On("GeoRemove", mock.Anything, "drivers:geo:two_wheeler", "driver-1").Return(nil).Once()

		require.NoError(t, idx.Upsert(context.Background(), p))
		r.AssertNotCalled(t, "GeoAdd")
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)
		p := eligiblePresence("driver-1", 91.0, originLon, 4.8)

		err := idx.Upsert(context.Background(), p)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		r.AssertNotCalled(t, "SetWithExpiration")
	})
}

// ========================================
// NEARBY TESTS
// ========================================

func TestNearby(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by distance then rating", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)

		near := eligiblePresence("near", originLat+0.001, originLon, 4.2)
		far := eligiblePresence("far", originLat+0.02, originLon, 5.0)
		// Same position as near but higher rating; wins the tie-break.
		nearStar := eligiblePresence("near-star", originLat+0.001, originLon, 4.9)

		r.On("GeoRadius", mock.Anything, "drivers:geo:two_wheeler", originLon, originLat, 10.0, 15).
			Return([]string{"far", "near", "near-star"}, nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:far").Return(presenceJSON(t, far), nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:near").Return(presenceJSON(t, near), nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:near-star").Return(presenceJSON(t, nearStar), nil).Once()

		got, err := idx.Nearby(ctx, originLat, originLon, 10.0, models.VehicleClassTwoWheeler, 5)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "near-star", got[0].Presence.DriverID)
		assert.Equal(t, "near", got[1].Presence.DriverID)
		assert.Equal(t, "far", got[2].Presence.DriverID)
		assert.LessOrEqual(t, got[0].DistanceKm, got[2].DistanceKm)
	})

	t.Run("filters unavailable and unapproved drivers", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)

		busy := eligiblePresence("busy", originLat, originLon, 4.5)
		busy.Available = false
		unapproved := eligiblePresence("unapproved", originLat, originLon, 4.5)
		unapproved.Approved = false
		ok := eligiblePresence("ok", originLat, originLon, 4.5)

		r.On("GeoRadius", mock.Anything, mock.Anything, originLon, originLat, 10.0, 15).
			Return([]string{"busy", "unapproved", "ok"}, nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:busy").Return(presenceJSON(t, busy), nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:unapproved").Return(presenceJSON(t, unapproved), nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:ok").Return(presenceJSON(t, ok), nil).Once()

		got, err := idx.Nearby(ctx, originLat, originLon, 10.0, models.VehicleClassTwoWheeler, 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ok", got[0].Presence.DriverID)
	})

	t.Run("expired presence is skipped", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)

		r.On("GeoRadius", mock.Anything, mock.Anything, originLon, originLat, 10.0, 15).
			Return([]string{"gone"}, nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:gone").Return("", assert.AnError).Once()

		got, err := idx.Nearby(ctx, originLat, originLon, 10.0, models.VehicleClassTwoWheeler, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("eta grows linearly with distance", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)

		// ~2.2 km north of the origin.
		p := eligiblePresence("driver-1", originLat+0.02, originLon, 4.5)

		r.On("GeoRadius", mock.Anything, mock.Anything, originLon, originLat, 10.0, 3).
			Return([]string{"driver-1"}, nil).Once()
		r.On("GetString", mock.Anything, "driver:presence:driver-1").Return(presenceJSON(t, p), nil).Once()

		got, err := idx.Nearby(ctx, originLat, originLon, 10.0, models.VehicleClassTwoWheeler, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, got[0].DistanceKm*3, float64(got[0].ETAMinutes), 0.51)
	})

	t.Run("invalid class rejected", func(t *testing.T) {
		r := new(mockRedis)
		idx := NewIndex(r)

		_, err := idx.Nearby(ctx, originLat, originLon, 10.0, "rickshaw", 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}
