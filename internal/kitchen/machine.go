package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"brigade/internal/events"
	"brigade/internal/models"
	"brigade/internal/monitoring"
)

// SystemActor is the actor identity attributed to transitions the service
// initiates itself (auto-accept, auto-bump).
const SystemActor = "system"

// Trigger names a requested ticket transition.
type Trigger string

const (
	TriggerAccept   Trigger = "accept"
	TriggerStart    Trigger = "start"
	TriggerBump     Trigger = "bump"
	TriggerComplete Trigger = "complete"
	TriggerServe    Trigger = "serve"
	TriggerCancel   Trigger = "cancel"
	TriggerRecall   Trigger = "recall"
)

// allowedFrom maps each trigger to the states it is legal in.
var allowedFrom = map[Trigger][]models.TicketState{
	TriggerAccept:   {models.TicketReceived},
	TriggerStart:    {models.TicketAccepted},
	TriggerBump:     {models.TicketInProgress},
	TriggerComplete: {models.TicketBumped},
	TriggerServe:    {models.TicketCompleted},
	TriggerCancel:   {models.TicketReceived, models.TicketAccepted, models.TicketInProgress, models.TicketBumped},
	TriggerRecall:   {models.TicketAccepted, models.TicketInProgress, models.TicketBumped, models.TicketCompleted},
}

// forwardTarget maps a forward trigger to its resulting state.
var forwardTarget = map[Trigger]models.TicketState{
	TriggerAccept:   models.TicketAccepted,
	TriggerStart:    models.TicketInProgress,
	TriggerBump:     models.TicketBumped,
	TriggerComplete: models.TicketCompleted,
	TriggerServe:    models.TicketServed,
	TriggerCancel:   models.TicketCancelled,
}

// recallTarget maps the current state to the state a recall reverts to.
// Recall moves exactly one step back into the active flow.
var recallTarget = map[models.TicketState]models.TicketState{
	models.TicketAccepted:   models.TicketReceived,
	models.TicketInProgress: models.TicketAccepted,
	models.TicketBumped:     models.TicketInProgress,
	models.TicketCompleted:  models.TicketBumped,
}

// triggerAction maps a trigger to the audit action it logs.
var triggerAction = map[Trigger]models.Action{
	TriggerAccept:   models.ActionAccepted,
	TriggerStart:    models.ActionStarted,
	TriggerBump:     models.ActionBumped,
	TriggerComplete: models.ActionCompleted,
	TriggerServe:    models.ActionServed,
	TriggerCancel:   models.ActionCancelled,
	TriggerRecall:   models.ActionRecalled,
}

// ParseTrigger validates a trigger name from an external caller.
func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(s)
	if _, ok := allowedFrom[t]; !ok {
		return "", fmt.Errorf("unknown trigger %q", s)
	}
	return t, nil
}

// ticketLocks serializes transitions per ticket. Attempts on different
// tickets proceed independently.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *ticketLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Machine enforces the legal ticket transitions. Exactly one Machine governs
// a ticket at a time: every transition holds the ticket's lock across
// read-validate-mutate-audit, and the mutation and audit append commit as a
// single unit through the store transaction.
type Machine struct {
	store     Store
	publisher events.Publisher
	locks     *ticketLocks
	clock     func() time.Time
}

// NewMachine creates a state machine over the given store. publisher may be
// nil when no event bus is wired.
func NewMachine(store Store, publisher events.Publisher) *Machine {
	return &Machine{
		store:     store,
		publisher: publisher,
		locks:     newTicketLocks(),
		clock:     time.Now,
	}
}

// WithClock overrides the machine's clock.
func (m *Machine) WithClock(clock func() time.Time) *Machine {
	m.clock = clock
	return m
}

// Apply performs one transition on a ticket, stamps the relevant timestamp,
// and appends exactly one audit entry before returning. Concurrent calls on
// the same ticket are serialized; the loser of a race observes the new state
// and gets an IllegalTransitionError if its trigger no longer applies.
func (m *Machine) Apply(ctx context.Context, ticketID string, trigger Trigger, actor string) (*models.Ticket, error) {
	if _, ok := allowedFrom[trigger]; !ok {
		return nil, fmt.Errorf("unknown trigger %q", trigger)
	}

	lock := m.locks.get(ticketID)
	lock.Lock()
	defer lock.Unlock()

	var updated *models.Ticket
	var prev models.TicketState
	err := m.store.Transact(ctx, func(tx Store) error {
		t, err := tx.Tickets().Get(ctx, ticketID)
		if err != nil {
			return err
		}

		if !triggerLegal(trigger, t.State) {
			return &IllegalTransitionError{TicketID: ticketID, State: t.State, Trigger: trigger}
		}

		prev = t.State
		next := forwardTarget[trigger]
		if trigger == TriggerRecall {
			next = recallTarget[t.State]
		}

		now := m.clock()
		t.State = next
		t.LastTransitionAt = now
		stampState(t, next, now)

		if err := tx.Tickets().Update(ctx, t); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, auditFor(t, triggerAction[trigger], actor, "", now)); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		monitoring.RecordFailure(hubLabel(updated), failureReason(err))
		return nil, err
	}

	monitoring.RecordTransition(updated.HubID, string(triggerAction[trigger]))
	m.publish(ctx, updated, triggerAction[trigger], actor, prev)
	return updated, nil
}

// ChangePriority updates a non-terminal ticket's priority in place. The
// state and its escalation clock are untouched; the change is audited as
// priority_changed.
func (m *Machine) ChangePriority(ctx context.Context, ticketID string, priority int, actor string) (*models.Ticket, error) {
	lock := m.locks.get(ticketID)
	lock.Lock()
	defer lock.Unlock()

	var updated *models.Ticket
	err := m.store.Transact(ctx, func(tx Store) error {
		t, err := tx.Tickets().Get(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.State.Terminal() {
			return &IllegalTransitionError{TicketID: ticketID, State: t.State, Trigger: "change_priority"}
		}

		notes := fmt.Sprintf("%d -> %d", t.Priority, priority)
		t.Priority = priority

		if err := tx.Tickets().Update(ctx, t); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, auditFor(t, models.ActionPriorityChanged, actor, notes, m.clock())); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		monitoring.RecordFailure(hubLabel(updated), failureReason(err))
		return nil, err
	}

	monitoring.RecordTransition(updated.HubID, string(models.ActionPriorityChanged))
	m.publish(ctx, updated, models.ActionPriorityChanged, actor, updated.State)
	return updated, nil
}

func triggerLegal(trigger Trigger, state models.TicketState) bool {
	for _, s := range allowedFrom[trigger] {
		if s == state {
			return true
		}
	}
	return false
}

// stampState writes the timestamp for a state being entered. Forward entries
// happen once; a state re-entered after a recall gets a fresh stamp so the
// ready queue stays honest about when a ticket actually became ready.
func stampState(t *models.Ticket, state models.TicketState, now time.Time) {
	switch state {
	case models.TicketAccepted:
		t.AcceptedAt = &now
	case models.TicketInProgress:
		t.StartedAt = &now
	case models.TicketBumped:
		t.BumpedAt = &now
	case models.TicketCompleted:
		t.CompletedAt = &now
	case models.TicketServed:
		t.ServedAt = &now
	case models.TicketCancelled:
		t.CancelledAt = &now
	}
}

func auditFor(t *models.Ticket, action models.Action, actor, notes string, ts time.Time) *models.AuditEntry {
	return &models.AuditEntry{
		HubID:       t.HubID,
		TicketID:    t.ID,
		OrderID:     t.OrderID,
		OrderItemID: t.OrderItemID,
		Station:     t.Station,
		Action:      action,
		Actor:       actor,
		Notes:       notes,
		Timestamp:   ts,
	}
}

// publish sends the transition event on the bus. Publish failures are logged
// and swallowed: the audit log, not the bus, is the record of what happened.
func (m *Machine) publish(ctx context.Context, t *models.Ticket, action models.Action, actor string, prev models.TicketState) {
	if m.publisher == nil {
		return
	}
	evt := events.TicketEvent{
		EventType:     "kitchen.ticket.status_changed",
		OccurredAt:    m.clock().UTC(),
		HubID:         t.HubID,
		TicketID:      t.ID,
		OrderID:       t.OrderID,
		OrderItemID:   t.OrderItemID,
		Station:       t.Station,
		Action:        action,
		Actor:         actor,
		PreviousState: prev,
		NewState:      t.State,
		Priority:      t.Priority,
	}
	payload, _ := json.Marshal(evt)
	if err := m.publisher.Publish(ctx, events.TicketsTopic, payload); err != nil {
		log.Printf("machine: failed to publish %s event for ticket %s: %v", action, t.ID, err)
	}
}

func hubLabel(t *models.Ticket) string {
	if t != nil {
		return t.HubID
	}
	return "unknown"
}

func failureReason(err error) string {
	switch err.(type) {
	case *IllegalTransitionError:
		return "illegal_transition"
	case *NotFoundError:
		return "not_found"
	case *StorageFailure:
		return "storage"
	default:
		return "other"
	}
}
