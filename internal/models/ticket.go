package models

import (
	"time"
)

// TicketState represents the possible states of a kitchen ticket
type TicketState string

const (
	TicketReceived   TicketState = "received"
	TicketAccepted   TicketState = "accepted"
	TicketInProgress TicketState = "in_progress"
	TicketBumped     TicketState = "bumped"
	TicketCompleted  TicketState = "completed"
	TicketServed     TicketState = "served"
	TicketCancelled  TicketState = "cancelled"
)

// ActiveStates are the states shown on the station displays, in board order.
var ActiveStates = []TicketState{TicketReceived, TicketAccepted, TicketInProgress}

// Terminal reports whether no further transition is legal from the state.
func (s TicketState) Terminal() bool {
	return s == TicketServed || s == TicketCancelled
}

// Ticket is a single station-routed unit of preparation work derived from an
// order line item. The order and station fields are back-references resolved
// through the orders collaborator; the kitchen never owns them.
type Ticket struct {
	ID          string      `gorm:"primary_key" json:"id"`
	HubID       string      `gorm:"index:idx_tickets_hub_station_state" json:"hub_id"`
	OrderID     string      `gorm:"index" json:"order_id"`
	OrderItemID string      `json:"order_item_id"`
	Station     string      `gorm:"index:idx_tickets_hub_station_state" json:"station"`
	State       TicketState `gorm:"index:idx_tickets_hub_station_state" json:"state"`
	Priority    int         `json:"priority"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	BumpedAt    *time.Time `json:"bumped_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ServedAt    *time.Time `json:"served_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// LastTransitionAt marks when the current state began; escalation
	// timers measure against it.
	LastTransitionAt time.Time `json:"last_transition_at"`
}

// TableName sets the tickets table name
func (Ticket) TableName() string {
	return "kitchen_tickets"
}
