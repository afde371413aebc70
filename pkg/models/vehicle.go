package models

// VehicleClass is the category of vehicle a ride is requested for. It
// determines the fare table and driver matching eligibility.
type VehicleClass string

const (
	VehicleClassTwoWheeler  VehicleClass = "two_wheeler"
	VehicleClassFourWheeler VehicleClass = "four_wheeler"
)

// Valid reports whether the class is one the engine knows about.
func (c VehicleClass) Valid() bool {
	switch c {
	case VehicleClassTwoWheeler, VehicleClassFourWheeler:
		return true
	}
	return false
}

// Location is a named point on the map.
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
