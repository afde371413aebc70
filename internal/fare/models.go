package fare

import "github.com/swiftride/dispatch/pkg/models"

// classRate is the fixed fare table for one vehicle class.
type classRate struct {
	BaseFare   float64
	PerKmRate  float64
	IncludedKm float64
}

// rateTable maps each vehicle class to its fare constants. The base fare
// covers the first IncludedKm of the trip; only distance beyond that is
// charged at PerKmRate.
var rateTable = map[models.VehicleClass]classRate{
	models.VehicleClassTwoWheeler: {
		BaseFare:   20.0,
		PerKmRate:  10.0,
		IncludedKm: 1.0,
	},
	models.VehicleClassFourWheeler: {
		BaseFare:   30.0,
		PerKmRate:  15.0,
		IncludedKm: 2.0,
	},
}

// Breakdown itemizes a fare. All components are non-negative and the total
// is base + distance + time + surge - discount + tip, floored at zero.
type Breakdown struct {
	BaseFare             float64 `json:"base_fare"`
	DistanceFare         float64 `json:"distance_fare"`
	TimeFare             float64 `json:"time_fare"`
	SurgeMultiplier      float64 `json:"surge_multiplier"`
	SurgeAmount          float64 `json:"surge_amount"`
	SubscriptionDiscount float64 `json:"subscription_discount"`
	Tip                  float64 `json:"tip"`
	Total                float64 `json:"total"`
}
