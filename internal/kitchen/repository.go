package kitchen

import (
	"context"
	"time"

	"brigade/internal/models"
)

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	HubID   string
	Station string
	States  []models.TicketState
	OrderID string
	Limit   int
	Offset  int
}

// AuditFilter narrows audit queries. Results are always ordered by
// timestamp ascending.
type AuditFilter struct {
	HubID    string
	TicketID string
	OrderID  string
	Station  string
	Actor    string
	Action   models.Action
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// TicketRepository is the persistence contract for tickets. The core never
// assumes a storage technology behind it.
type TicketRepository interface {
	Create(ctx context.Context, t *models.Ticket) error
	Get(ctx context.Context, id string) (*models.Ticket, error)
	Update(ctx context.Context, t *models.Ticket) error
	List(ctx context.Context, filter TicketFilter) ([]models.Ticket, error)
	// Hubs returns the distinct hubs that currently hold non-terminal
	// tickets; the auto-bump scheduler scans these.
	Hubs(ctx context.Context) ([]string, error)
}

// AuditLog is the append-only record of kitchen actions. Append never fails
// except on storage failure, and readers never block writers.
type AuditLog interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, error)
}

// Store bundles the repositories and provides the atomic unit the state
// machine needs: a transition's ticket update and audit append either both
// commit or both roll back.
type Store interface {
	Tickets() TicketRepository
	Audit() AuditLog
	Transact(ctx context.Context, fn func(tx Store) error) error
}

// SettingsProvider exposes read-only per-hub configuration.
type SettingsProvider interface {
	Settings(ctx context.Context, hubID string) (*models.KitchenSettings, error)
}

// StationDirectory resolves station references owned by the orders
// collaborator.
type StationDirectory interface {
	Station(ctx context.Context, hubID, stationID string) (*models.Station, error)
}
