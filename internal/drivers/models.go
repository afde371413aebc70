package drivers

import (
	"time"

	"github.com/swiftride/dispatch/pkg/models"
)

// VerificationStatus of a driver's onboarding documents. Only approved
// drivers receive offers.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationInReview VerificationStatus = "in_review"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Driver is a registered driver. Available is meaningful only while Online;
// a driver with a CurrentRideID is never available.
type Driver struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Phone              string              `json:"phone"`
	VehicleClass       models.VehicleClass `json:"vehicle_class"`
	VerificationStatus VerificationStatus  `json:"verification_status"`
	Online             bool                `json:"online"`
	Available          bool                `json:"available"`
	CurrentRideID      *string             `json:"current_ride_id,omitempty"`
	RatingAverage      float64             `json:"rating_average"`
	RatingCount        int                 `json:"rating_count"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Dispatchable reports whether the driver may receive ride offers.
func (d *Driver) Dispatchable() bool {
	return d.Online && d.Available && d.CurrentRideID == nil &&
		d.VerificationStatus == VerificationApproved
}

// Earning is one ride's settled revenue share for a driver.
type Earning struct {
	ID          string    `json:"id"`
	DriverID    string    `json:"driver_id"`
	RideID      string    `json:"ride_id"`
	GrossAmount float64   `json:"gross_amount"`
	Commission  float64   `json:"commission"`
	NetAmount   float64   `json:"net_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// EarningsSummary aggregates a driver's net earnings over standard windows.
type EarningsSummary struct {
	DriverID  string  `json:"driver_id"`
	Today     float64 `json:"today"`
	Week      float64 `json:"week"`
	Month     float64 `json:"month"`
	Lifetime  float64 `json:"lifetime"`
	RideCount int     `json:"ride_count"`
}

// RatingStats is a driver's running rating average plus the star histogram.
type RatingStats struct {
	DriverID  string  `json:"driver_id"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
	Histogram [5]int  `json:"histogram"` // index 0 = one star
}
