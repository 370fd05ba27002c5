package database

import (
	"context"
	"sort"
	"sync"

	"brigade/internal/kitchen"
	"brigade/internal/models"
)

// MemStore is an in-memory kitchen.Store for development mode and tests.
// A single lock guards all data; Transact snapshots the data before running
// so a failed transaction restores exactly the prior state.
type MemStore struct {
	mu   sync.RWMutex
	data *memData
}

type memData struct {
	tickets  map[string]models.Ticket
	audit    []models.AuditEntry
	seq      uint64
	settings map[string]models.KitchenSettings
	stations map[string]map[string]models.Station
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: newMemData()}
}

func newMemData() *memData {
	return &memData{
		tickets:  make(map[string]models.Ticket),
		settings: make(map[string]models.KitchenSettings),
		stations: make(map[string]map[string]models.Station),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for id, t := range d.tickets {
		c.tickets[id] = t
	}
	c.audit = append(c.audit, d.audit...)
	c.seq = d.seq
	for hub, s := range d.settings {
		c.settings[hub] = s
	}
	for hub, stations := range d.stations {
		m := make(map[string]models.Station, len(stations))
		for id, st := range stations {
			m[id] = st
		}
		c.stations[hub] = m
	}
	return c
}

func (s *MemStore) Tickets() kitchen.TicketRepository {
	return lockedTickets{s}
}

func (s *MemStore) Audit() kitchen.AuditLog {
	return lockedAudit{s}
}

// Transact runs fn against the live data under the write lock; on error the
// pre-transaction snapshot is restored, leaving nothing half-applied.
func (s *MemStore) Transact(ctx context.Context, fn func(tx kitchen.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memTx{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Settings returns the hub's settings, creating the defaults row on first
// access.
func (s *MemStore) Settings(ctx context.Context, hubID string) (*models.KitchenSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings, ok := s.data.settings[hubID]; ok {
		out := settings
		return &out, nil
	}
	defaults := models.DefaultSettings(hubID)
	s.data.settings[hubID] = *defaults
	return defaults, nil
}

// PutSettings overrides a hub's settings (test and dev-mode hook; the
// production write path belongs to the settings collaborator).
func (s *MemStore) PutSettings(settings *models.KitchenSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings[settings.HubID] = *settings
}

// Station resolves a station reference.
func (s *MemStore) Station(ctx context.Context, hubID, stationID string) (*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if stations, ok := s.data.stations[hubID]; ok {
		if station, ok := stations[stationID]; ok {
			out := station
			return &out, nil
		}
	}
	return nil, &kitchen.NotFoundError{Kind: "station", ID: stationID}
}

// PutStation registers a station.
func (s *MemStore) PutStation(station models.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.stations[station.HubID] == nil {
		s.data.stations[station.HubID] = make(map[string]models.Station)
	}
	s.data.stations[station.HubID][station.ID] = station
}

// memTx exposes the store inside a Transact call: the outer write lock is
// already held, so its repositories operate on the data directly.
type memTx struct {
	data *memData
}

func (t *memTx) Tickets() kitchen.TicketRepository { return rawTickets{t.data} }
func (t *memTx) Audit() kitchen.AuditLog           { return rawAudit{t.data} }

func (t *memTx) Transact(ctx context.Context, fn func(tx kitchen.Store) error) error {
	return fn(t)
}

type rawTickets struct {
	d *memData
}

func (r rawTickets) Create(ctx context.Context, t *models.Ticket) error {
	r.d.tickets[t.ID] = *t
	return nil
}

func (r rawTickets) Get(ctx context.Context, id string) (*models.Ticket, error) {
	t, ok := r.d.tickets[id]
	if !ok {
		return nil, &kitchen.NotFoundError{Kind: "ticket", ID: id}
	}
	out := t
	return &out, nil
}

func (r rawTickets) Update(ctx context.Context, t *models.Ticket) error {
	if _, ok := r.d.tickets[t.ID]; !ok {
		return &kitchen.NotFoundError{Kind: "ticket", ID: t.ID}
	}
	r.d.tickets[t.ID] = *t
	return nil
}

func (r rawTickets) List(ctx context.Context, filter kitchen.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range r.d.tickets {
		if !matchTicket(&t, filter) {
			continue
		}
		out = append(out, t)
	}
	sortByCreated(out)
	out = page(out, filter.Limit, filter.Offset)
	return out, nil
}

func (r rawTickets) Hubs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var hubs []string
	for _, t := range r.d.tickets {
		if t.State.Terminal() || seen[t.HubID] {
			continue
		}
		seen[t.HubID] = true
		hubs = append(hubs, t.HubID)
	}
	return hubs, nil
}

type rawAudit struct {
	d *memData
}

func (r rawAudit) Append(ctx context.Context, e *models.AuditEntry) error {
	r.d.seq++
	e.Seq = r.d.seq
	r.d.audit = append(r.d.audit, *e)
	return nil
}

func (r rawAudit) Query(ctx context.Context, filter kitchen.AuditFilter) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range r.d.audit {
		if matchAudit(&e, filter) {
			out = append(out, e)
		}
	}
	// audit entries are appended in seq order, which is timestamp order
	out = pageAudit(out, filter.Limit, filter.Offset)
	return out, nil
}

// lockedTickets and lockedAudit guard non-transactional access.

type lockedTickets struct {
	s *MemStore
}

func (l lockedTickets) Create(ctx context.Context, t *models.Ticket) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return rawTickets{l.s.data}.Create(ctx, t)
}

func (l lockedTickets) Get(ctx context.Context, id string) (*models.Ticket, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return rawTickets{l.s.data}.Get(ctx, id)
}

func (l lockedTickets) Update(ctx context.Context, t *models.Ticket) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return rawTickets{l.s.data}.Update(ctx, t)
}

func (l lockedTickets) List(ctx context.Context, filter kitchen.TicketFilter) ([]models.Ticket, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return rawTickets{l.s.data}.List(ctx, filter)
}

func (l lockedTickets) Hubs(ctx context.Context) ([]string, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return rawTickets{l.s.data}.Hubs(ctx)
}

type lockedAudit struct {
	s *MemStore
}

func (l lockedAudit) Append(ctx context.Context, e *models.AuditEntry) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return rawAudit{l.s.data}.Append(ctx, e)
}

func (l lockedAudit) Query(ctx context.Context, filter kitchen.AuditFilter) ([]models.AuditEntry, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return rawAudit{l.s.data}.Query(ctx, filter)
}

func matchTicket(t *models.Ticket, f kitchen.TicketFilter) bool {
	if f.HubID != "" && t.HubID != f.HubID {
		return false
	}
	if f.Station != "" && t.Station != f.Station {
		return false
	}
	if f.OrderID != "" && t.OrderID != f.OrderID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if t.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchAudit(e *models.AuditEntry, f kitchen.AuditFilter) bool {
	if f.HubID != "" && e.HubID != f.HubID {
		return false
	}
	if f.TicketID != "" && e.TicketID != f.TicketID {
		return false
	}
	if f.OrderID != "" && e.OrderID != f.OrderID {
		return false
	}
	if f.Station != "" && e.Station != f.Station {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.Timestamp.Before(*f.To) {
		return false
	}
	return true
}

func sortByCreated(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

func page(items []models.Ticket, limit, offset int) []models.Ticket {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func pageAudit(items []models.AuditEntry, limit, offset int) []models.AuditEntry {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
