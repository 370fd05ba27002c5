package kitchen

import (
	"context"
	"sort"
	"time"

	"brigade/internal/models"
	"brigade/internal/monitoring"
)

// TicketView is a ticket annotated for the display: how long it has been in
// its current state and how urgent that makes it.
type TicketView struct {
	models.Ticket
	ElapsedSeconds int     `json:"elapsed_seconds"`
	Urgency        Urgency `json:"urgency"`
}

// Counts tallies tickets per display lane.
type Counts struct {
	Received   int `json:"received"`
	Accepted   int `json:"accepted"`
	InProgress int `json:"in_progress"`
	Ready      int `json:"ready"`
}

// Service is the surface exposed to display and UI collaborators.
type Service struct {
	store    Store
	settings SettingsProvider
	machine  *Machine
	router   *Router
	clock    func() time.Time
}

// NewService wires the kitchen core together.
func NewService(store Store, settings SettingsProvider, machine *Machine, router *Router) *Service {
	return &Service{
		store:    store,
		settings: settings,
		machine:  machine,
		router:   router,
		clock:    time.Now,
	}
}

// WithClock overrides the service's clock.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// PlaceOrder routes an incoming order into tickets. Partial success is
// expected: the result carries both created tickets and per-line failures.
func (s *Service) PlaceOrder(ctx context.Context, order models.IncomingOrder) (*RoutingResult, error) {
	return s.router.Route(ctx, order)
}

// ListActive returns the hub's tickets still at a station (received,
// accepted, in progress), ordered priority descending then oldest first,
// annotated with elapsed time and urgency.
func (s *Service) ListActive(ctx context.Context, hubID string) ([]TicketView, error) {
	settings, err := s.settings.Settings(ctx, hubID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.store.Tickets().List(ctx, TicketFilter{
		HubID:  hubID,
		States: models.ActiveStates,
	})
	if err != nil {
		return nil, err
	}
	sortActive(tickets)
	monitoring.SetActiveTickets(hubID, len(tickets))

	now := s.clock()
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, TicketView{
			Ticket:         tickets[i],
			ElapsedSeconds: int(Elapsed(&tickets[i], now) / time.Second),
			Urgency:        Classify(&tickets[i], settings, now),
		})
	}
	return views, nil
}

// ListReady returns the ready queue: exactly the hub's bumped tickets,
// priority descending, ties first-bumped-first-served. Recomputed on read,
// no side effects.
func (s *Service) ListReady(ctx context.Context, hubID string) ([]models.Ticket, error) {
	tickets, err := s.store.Tickets().List(ctx, TicketFilter{
		HubID:  hubID,
		States: []models.TicketState{models.TicketBumped},
	})
	if err != nil {
		return nil, err
	}
	SortReady(tickets)
	return tickets, nil
}

// ListHistory queries the audit log, timestamp ascending. When the filter
// sets no limit, the hub's items_per_page applies.
func (s *Service) ListHistory(ctx context.Context, hubID string, filter AuditFilter) ([]models.AuditEntry, error) {
	filter.HubID = hubID
	if filter.Limit <= 0 {
		settings, err := s.settings.Settings(ctx, hubID)
		if err != nil {
			return nil, err
		}
		filter.Limit = settings.ItemsPerPage
	}
	return s.store.Audit().Query(ctx, filter)
}

// TicketCounts tallies the hub's tickets per display lane.
func (s *Service) TicketCounts(ctx context.Context, hubID string) (*Counts, error) {
	tickets, err := s.store.Tickets().List(ctx, TicketFilter{
		HubID: hubID,
		States: []models.TicketState{
			models.TicketReceived, models.TicketAccepted,
			models.TicketInProgress, models.TicketBumped,
		},
	})
	if err != nil {
		return nil, err
	}

	counts := &Counts{}
	for _, t := range tickets {
		switch t.State {
		case models.TicketReceived:
			counts.Received++
		case models.TicketAccepted:
			counts.Accepted++
		case models.TicketInProgress:
			counts.InProgress++
		case models.TicketBumped:
			counts.Ready++
		}
	}
	return counts, nil
}

// Transition applies a trigger to a ticket on behalf of an actor.
func (s *Service) Transition(ctx context.Context, ticketID string, trigger Trigger, actor string) (*models.Ticket, error) {
	return s.machine.Apply(ctx, ticketID, trigger, actor)
}

// ChangePriority updates a ticket's priority on behalf of an actor.
func (s *Service) ChangePriority(ctx context.Context, ticketID string, priority int, actor string) (*models.Ticket, error) {
	return s.machine.ChangePriority(ctx, ticketID, priority, actor)
}

// HubSettings exposes the hub's read-only configuration.
func (s *Service) HubSettings(ctx context.Context, hubID string) (*models.KitchenSettings, error) {
	return s.settings.Settings(ctx, hubID)
}

// sortActive orders the display board: priority descending, then oldest
// ticket first.
func sortActive(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].Priority != tickets[j].Priority {
			return tickets[i].Priority > tickets[j].Priority
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}
