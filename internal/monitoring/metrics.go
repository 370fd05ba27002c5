package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ticket lifecycle metrics
var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kitchen_ticket_transitions_total",
			Help: "Successful ticket transitions by action",
		},
		[]string{"hub", "action"},
	)

	transitionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kitchen_transition_failures_total",
			Help: "Rejected or failed ticket transitions by reason",
		},
		[]string{"hub", "reason"},
	)

	autoBumpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kitchen_auto_bumps_total",
			Help: "Tickets bumped by the scheduler",
		},
		[]string{"hub"},
	)

	ticketsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kitchen_tickets_active",
			Help: "Tickets currently in a non-terminal state",
		},
		[]string{"hub"},
	)
)

func init() {
	prometheus.MustRegister(
		transitionsTotal,
		transitionFailures,
		autoBumpsTotal,
		ticketsActive,
	)
}

// RecordTransition records one successful transition.
func RecordTransition(hub, action string) {
	transitionsTotal.WithLabelValues(hub, action).Inc()
}

// RecordFailure records a rejected or failed transition.
func RecordFailure(hub, reason string) {
	transitionFailures.WithLabelValues(hub, reason).Inc()
}

// RecordAutoBump records one scheduler-initiated bump.
func RecordAutoBump(hub string) {
	autoBumpsTotal.WithLabelValues(hub).Inc()
}

// SetActiveTickets sets the active-ticket gauge for a hub.
func SetActiveTickets(hub string, n int) {
	ticketsActive.WithLabelValues(hub).Set(float64(n))
}
