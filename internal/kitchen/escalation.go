package kitchen

import (
	"time"

	"brigade/internal/models"
)

// Urgency classifies how long a ticket has been sitting in its current
// state relative to the hub's thresholds.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// Elapsed returns the time the ticket has spent in its current state.
func Elapsed(t *models.Ticket, now time.Time) time.Duration {
	return now.Sub(t.LastTransitionAt)
}

// Classify maps a ticket's elapsed time onto an urgency level. Terminal
// tickets are always Normal. A zero or negative threshold disables that
// level: the ticket never reports it.
func Classify(t *models.Ticket, settings *models.KitchenSettings, now time.Time) Urgency {
	if t.State.Terminal() {
		return UrgencyNormal
	}

	elapsed := Elapsed(t, now)
	if critical := settings.CriticalThreshold(); critical > 0 && elapsed >= critical {
		return UrgencyCritical
	}
	if warning := settings.WarningThreshold(); warning > 0 && elapsed >= warning {
		return UrgencyWarning
	}
	return UrgencyNormal
}
