package geoindex

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels. See: https://h3geo.org/docs/core-library/restable
const (
	// h3ResolutionMatching is used for driver-rider matching (~175m edge).
	h3ResolutionMatching = 9

	// h3ResolutionZone is used for coarse zone aggregation (~1.2 km edge).
	h3ResolutionZone = 7
)

// latLngToCell converts coordinates to an H3 cell at the given resolution.
// Out-of-range coordinates are validated upstream; on error the zero cell
// is returned.
func latLngToCell(lat, lng float64, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// MatchingCell returns the H3 cell (as hex string) a driver is tagged with
// for matching purposes.
func MatchingCell(lat, lng float64) string {
	return latLngToCell(lat, lng, h3ResolutionMatching).String()
}

// Zone returns the coarse H3 cell (as hex string) used to label demand
// zones in events and logs.
func Zone(lat, lng float64) string {
	return latLngToCell(lat, lng, h3ResolutionZone).String()
}
