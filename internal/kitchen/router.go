package kitchen

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"brigade/internal/models"
)

// RoutingResult is the partial-success outcome of routing one order: valid
// line items produce tickets even when other lines fail.
type RoutingResult struct {
	Tickets  []models.Ticket `json:"tickets"`
	Failures []*RoutingError `json:"failures,omitempty"`
}

// Router turns incoming orders into station tickets.
type Router struct {
	store    Store
	stations StationDirectory
	settings SettingsProvider
	machine  *Machine
	clock    func() time.Time
}

// NewRouter creates a station router.
func NewRouter(store Store, stations StationDirectory, settings SettingsProvider, machine *Machine) *Router {
	return &Router{
		store:    store,
		stations: stations,
		settings: settings,
		machine:  machine,
		clock:    time.Now,
	}
}

// WithClock overrides the router's clock.
func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	return r
}

// Route creates one ticket in state Received per line item, assigned to the
// line's station with the order's priority. Lines targeting an unknown or
// inactive station fail individually and do not abort the rest of the order.
// When the hub has auto-accept enabled, each created ticket is immediately
// accepted on behalf of the system actor.
func (r *Router) Route(ctx context.Context, order models.IncomingOrder) (*RoutingResult, error) {
	settings, err := r.settings.Settings(ctx, order.HubID)
	if err != nil {
		return nil, err
	}

	result := &RoutingResult{}
	for _, line := range order.Items {
		station, err := r.stations.Station(ctx, order.HubID, line.Station)
		if err != nil {
			if _, ok := err.(*NotFoundError); ok {
				result.Failures = append(result.Failures, &RoutingError{
					OrderID: order.ID,
					ItemID:  line.ItemID,
					Station: line.Station,
					Reason:  "unknown station",
				})
				continue
			}
			return nil, err
		}
		if !station.Active {
			result.Failures = append(result.Failures, &RoutingError{
				OrderID: order.ID,
				ItemID:  line.ItemID,
				Station: line.Station,
				Reason:  "station inactive",
			})
			continue
		}

		now := r.clock()
		ticket := &models.Ticket{
			ID:               uuid.New().String(),
			HubID:            order.HubID,
			OrderID:          order.ID,
			OrderItemID:      line.ItemID,
			Station:          station.ID,
			State:            models.TicketReceived,
			Priority:         order.Priority,
			CreatedAt:        now,
			LastTransitionAt: now,
		}

		err = r.store.Transact(ctx, func(tx Store) error {
			if err := tx.Tickets().Create(ctx, ticket); err != nil {
				return err
			}
			return tx.Audit().Append(ctx, auditFor(ticket, models.ActionReceived, SystemActor, line.Notes, now))
		})
		if err != nil {
			return nil, err
		}

		if settings.AutoAcceptEnabled {
			accepted, err := r.machine.Apply(ctx, ticket.ID, TriggerAccept, SystemActor)
			if err != nil {
				// The ticket exists and stays Received; accepting it
				// becomes the station's job.
				log.Printf("router: auto-accept of ticket %s failed: %v", ticket.ID, err)
			} else {
				ticket = accepted
			}
		}

		result.Tickets = append(result.Tickets, *ticket)
	}

	return result, nil
}
