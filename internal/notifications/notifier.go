// Package notifications delivers ride lifecycle messages to riders and
// drivers. Sends are fire-and-forget with respect to ride state: a failed
// send is logged and surfaced as a warning, never rolled back into the
// transition that triggered it.
package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/logger"
)

// Templates for ride lifecycle notifications.
const (
	TemplateRideAssigned  = "ride_assigned"
	TemplateDriverArrived = "driver_arrived"
	TemplateRideCompleted = "ride_completed"
	TemplateRideCancelled = "ride_cancelled"
	TemplateNoDriverFound = "no_driver_found"
)

// Notifier abstracts the delivery channel (SMS, push).
type Notifier interface {
	Send(ctx context.Context, recipient, template string, data map[string]string) error
}

// renderTemplate builds the message body for a template. Unknown templates
// fall back to a generic line so a send never fails on formatting.
func renderTemplate(template string, data map[string]string) string {
	switch template {
	case TemplateRideAssigned:
		return fmt.Sprintf("Your ride %s is confirmed. %s is on the way, ETA %s min.",
			data["ride_id"], data["driver_name"], data["eta_minutes"])
	case TemplateDriverArrived:
		return fmt.Sprintf("Your driver has arrived for ride %s.", data["ride_id"])
	case TemplateRideCompleted:
		return fmt.Sprintf("Ride %s complete: %s km, fare %s. You saved %s kg of CO2.",
			data["ride_id"], data["distance_km"], data["total_fare"], data["co2_saved_kg"])
	case TemplateRideCancelled:
		return fmt.Sprintf("Ride %s was cancelled. %s", data["ride_id"], data["reason"])
	case TemplateNoDriverFound:
		return fmt.Sprintf("We couldn't find a driver for ride %s. Please try again.",
			data["ride_id"])
	default:
		return fmt.Sprintf("Update for ride %s.", data["ride_id"])
	}
}

// LogNotifier writes notifications to the log instead of a real channel.
// Used in development and tests.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the rendered message.
func (n *LogNotifier) Send(ctx context.Context, recipient, template string, data map[string]string) error {
	logger.InfoContext(ctx, "notification",
		zap.String("recipient", recipient),
		zap.String("template", template),
		zap.String("body", renderTemplate(template, data)),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
