package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomRules attaches the engine's custom validation rules to gin's
// binding validator. Called once at startup.
func RegisterCustomRules() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("latitude", validateLatitude)
	_ = v.RegisterValidation("longitude", validateLongitude)
	_ = v.RegisterValidation("vehicle_class", validateVehicleClass)
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90.0 && lat <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	lon := fl.Field().Float()
	return lon >= -180.0 && lon <= 180.0
}

// validateVehicleClass checks the enum at the binding layer; services still
// validate so programmatic callers get the same error.
func validateVehicleClass(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "two_wheeler", "four_wheeler":
		return true
	}
	return false
}
