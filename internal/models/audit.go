package models

import (
	"time"
)

// Action represents the logged kitchen actions
type Action string

const (
	ActionReceived        Action = "received"
	ActionAccepted        Action = "accepted"
	ActionStarted         Action = "started"
	ActionBumped          Action = "bumped"
	ActionCompleted       Action = "completed"
	ActionServed          Action = "served"
	ActionRecalled        Action = "recalled"
	ActionCancelled       Action = "cancelled"
	ActionPriorityChanged Action = "priority_changed"
)

// AuditEntry records one kitchen action. Entries are append-only: once
// written they are never mutated or deleted, and Seq grows monotonically.
type AuditEntry struct {
	Seq         uint64    `gorm:"primary_key;auto_increment" json:"seq"`
	HubID       string    `gorm:"index:idx_audit_hub_ts" json:"hub_id"`
	TicketID    string    `gorm:"index" json:"ticket_id"`
	OrderID     string    `gorm:"index" json:"order_id"`
	OrderItemID string    `json:"order_item_id,omitempty"`
	Station     string    `json:"station"`
	Action      Action    `json:"action"`
	Actor       string    `json:"actor"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `gorm:"index:idx_audit_hub_ts" json:"timestamp"`
}

// TableName sets the audit table name
func (AuditEntry) TableName() string {
	return "kitchen_order_log"
}
