// Package geoindex maintains the live driver location index backing
// dispatch searches. Redis GEO holds one sorted set per vehicle class;
// presence records carry the eligibility flags the search filters on.
//
// The index is eventually consistent with bounded staleness: presence
// records expire after a heartbeat TTL, so a driver whose app died stops
// receiving offers within five minutes. A slightly stale position is
// acceptable; eligibility is re-checked at accept time.
package geoindex

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/geo"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/models"
	redisclient "github.com/swiftride/dispatch/pkg/redis"
)

const (
	presencePrefix = "driver:presence:"
	presenceTTL    = 5 * time.Minute

	geoKeyPrefix = "drivers:geo:"
)

// Presence is a driver's live position plus the eligibility flags dispatch
// filters on. Written on every location heartbeat.
type Presence struct {
	DriverID     string              `json:"driver_id"`
	VehicleClass models.VehicleClass `json:"vehicle_class"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	H3Cell       string              `json:"h3_cell"`
	Rating       float64             `json:"rating"`
	Online       bool                `json:"online"`
	Available    bool                `json:"available"`
	Approved     bool                `json:"approved"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Candidate is a driver returned by a nearby search.
type Candidate struct {
	Presence   *Presence
	DistanceKm float64
	ETAMinutes int
}

// Index is the Redis-backed driver location index.
type Index struct {
	redis redisclient.ClientInterface
}

// NewIndex creates a geo index on the given Redis client.
func NewIndex(redis redisclient.ClientInterface) *Index {
	return &Index{redis: redis}
}

func geoKey(class models.VehicleClass) string {
	return geoKeyPrefix + string(class)
}

func presenceKey(driverID string) string {
	return presencePrefix + driverID
}

// Upsert writes a driver's presence and position. An offline driver is
// removed from the searchable set immediately rather than waiting for the
// heartbeat TTL.
func (idx *Index) Upsert(ctx context.Context, p *Presence) error {
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return common.NewInvalidInputError("coordinates out of range")
	}
	if !p.VehicleClass.Valid() {
		return common.NewInvalidInputError("unknown vehicle class: " + string(p.VehicleClass))
	}

	p.H3Cell = MatchingCell(p.Latitude, p.Longitude)
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p)
	if err != nil {
		return common.NewInternalError("failed to marshal presence", err)
	}
	if err := idx.redis.SetWithExpiration(ctx, presenceKey(p.DriverID), data, presenceTTL); err != nil {
		return common.NewInternalError("failed to write presence", err)
	}

	if !p.Online {
		if err := idx.redis.GeoRemove(ctx, geoKey(p.VehicleClass), p.DriverID); err != nil {
			logger.WarnContext(ctx, "failed to remove offline driver from geo set",
				zap.String("driver_id", p.DriverID), zap.Error(err))
		}
		return nil
	}

	if err := idx.redis.GeoAdd(ctx, geoKey(p.VehicleClass), p.Longitude, p.Latitude, p.DriverID); err != nil {
		return common.NewInternalError("failed to update geo set", err)
	}
	return nil
}

// Remove drops a driver from the index entirely.
func (idx *Index) Remove(ctx context.Context, driverID string, class models.VehicleClass) error {
	if err := idx.redis.GeoRemove(ctx, geoKey(class), driverID); err != nil {
		return common.NewInternalError("failed to remove driver from geo set", err)
	}
	if err := idx.redis.Delete(ctx, presenceKey(driverID)); err != nil {
		return common.NewInternalError("failed to remove presence", err)
	}
	return nil
}

// Get returns a driver's presence, or nil when the heartbeat has expired.
func (idx *Index) Get(ctx context.Context, driverID string) (*Presence, error) {
	data, err := idx.redis.GetString(ctx, presenceKey(driverID))
	if err != nil {
		return nil, nil
	}
	var p Presence
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, common.NewInternalError("failed to unmarshal presence", err)
	}
	return &p, nil
}

// Nearby returns eligible drivers around a point, ordered by distance
// ascending and rating descending on ties. Eligibility is online AND
// available AND approved AND class match.
func (idx *Index) Nearby(ctx context.Context, lat, lon, radiusKm float64, class models.VehicleClass, limit int) ([]*Candidate, error) {
	if !class.Valid() {
		return nil, common.NewInvalidInputError("unknown vehicle class: " + string(class))
	}
	if radiusKm <= 0 || limit <= 0 {
		return nil, common.NewInvalidInputError("radius and limit must be positive")
	}

	// Over-fetch so post-filtering on eligibility still fills the limit.
	driverIDs, err := idx.redis.GeoRadius(ctx, geoKey(class), lon, lat, radiusKm, limit*3)
	if err != nil {
		return nil, common.NewInternalError("failed to query geo set", err)
	}

	candidates := make([]*Candidate, 0, len(driverIDs))
	for _, driverID := range driverIDs {
		p, err := idx.Get(ctx, driverID)
		if err != nil || p == nil {
			continue
		}
		if !p.Online || !p.Available || !p.Approved || p.VehicleClass != class {
			continue
		}

		distance := geo.Haversine(lat, lon, p.Latitude, p.Longitude)
		if distance > radiusKm {
			continue
		}
		candidates = append(candidates, &Candidate{
			Presence:   p,
			DistanceKm: distance,
			ETAMinutes: geo.EstimateDuration(distance),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Presence.Rating > candidates[j].Presence.Rating
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	logger.Debug("nearby driver search",
		zap.String("vehicle_class", string(class)),
		zap.Float64("radius_km", radiusKm),
		zap.Int("matched", len(candidates)),
		zap.String("zone", Zone(lat, lon)),
	)
	return candidates, nil
}
