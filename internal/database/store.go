package database

import (
	"context"

	"github.com/jinzhu/gorm"

	"brigade/internal/kitchen"
	"brigade/internal/models"
)

// Store is the gorm-backed implementation of kitchen.Store.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Tickets() kitchen.TicketRepository {
	return &ticketRepo{db: s.db}
}

func (s *Store) Audit() kitchen.AuditLog {
	return &auditRepo{db: s.db}
}

// Transact runs fn inside one database transaction. The ticket update and
// audit append of a transition commit or roll back together.
func (s *Store) Transact(ctx context.Context, fn func(tx kitchen.Store) error) error {
	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		return &kitchen.StorageFailure{Op: "begin", Err: err}
	}

	if err := fn(&Store{db: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return &kitchen.StorageFailure{Op: "commit", Err: err}
	}
	return nil
}

type ticketRepo struct {
	db *gorm.DB
}

func (r *ticketRepo) Create(ctx context.Context, t *models.Ticket) error {
	if err := r.db.Create(t).Error; err != nil {
		return &kitchen.StorageFailure{Op: "create ticket", Err: err}
	}
	return nil
}

func (r *ticketRepo) Get(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := r.db.Where("id = ?", id).First(&t).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, &kitchen.NotFoundError{Kind: "ticket", ID: id}
	}
	if err != nil {
		return nil, &kitchen.StorageFailure{Op: "get ticket", Err: err}
	}
	return &t, nil
}

func (r *ticketRepo) Update(ctx context.Context, t *models.Ticket) error {
	if err := r.db.Save(t).Error; err != nil {
		return &kitchen.StorageFailure{Op: "update ticket", Err: err}
	}
	return nil
}

func (r *ticketRepo) List(ctx context.Context, filter kitchen.TicketFilter) ([]models.Ticket, error) {
	query := r.db.Model(&models.Ticket{})
	if filter.HubID != "" {
		query = query.Where("hub_id = ?", filter.HubID)
	}
	if filter.Station != "" {
		query = query.Where("station = ?", filter.Station)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN (?)", filter.States)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var tickets []models.Ticket
	if err := query.Order("created_at asc").Find(&tickets).Error; err != nil {
		return nil, &kitchen.StorageFailure{Op: "list tickets", Err: err}
	}
	return tickets, nil
}

func (r *ticketRepo) Hubs(ctx context.Context) ([]string, error) {
	var hubs []string
	rows, err := r.db.Model(&models.Ticket{}).
		Where("state NOT IN (?)", []models.TicketState{models.TicketServed, models.TicketCancelled}).
		Select("DISTINCT hub_id").Rows()
	if err != nil {
		return nil, &kitchen.StorageFailure{Op: "list hubs", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var hub string
		if err := rows.Scan(&hub); err != nil {
			return nil, &kitchen.StorageFailure{Op: "list hubs", Err: err}
		}
		hubs = append(hubs, hub)
	}
	return hubs, nil
}

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Append(ctx context.Context, e *models.AuditEntry) error {
	if err := r.db.Create(e).Error; err != nil {
		return &kitchen.StorageFailure{Op: "append audit entry", Err: err}
	}
	return nil
}

func (r *auditRepo) Query(ctx context.Context, filter kitchen.AuditFilter) ([]models.AuditEntry, error) {
	query := r.db.Model(&models.AuditEntry{})
	if filter.HubID != "" {
		query = query.Where("hub_id = ?", filter.HubID)
	}
	if filter.TicketID != "" {
		query = query.Where("ticket_id = ?", filter.TicketID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Station != "" {
		query = query.Where("station = ?", filter.Station)
	}
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp < ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entries []models.AuditEntry
	if err := query.Order("timestamp asc, seq asc").Find(&entries).Error; err != nil {
		return nil, &kitchen.StorageFailure{Op: "query audit log", Err: err}
	}
	return entries, nil
}

// SettingsProvider reads per-hub settings, creating the defaults row on
// first access the way the settings collaborator expects.
type SettingsProvider struct {
	db *gorm.DB
}

func NewSettingsProvider(db *gorm.DB) *SettingsProvider {
	return &SettingsProvider{db: db}
}

func (p *SettingsProvider) Settings(ctx context.Context, hubID string) (*models.KitchenSettings, error) {
	var settings models.KitchenSettings
	err := p.db.Where("hub_id = ?", hubID).First(&settings).Error
	if gorm.IsRecordNotFoundError(err) {
		defaults := models.DefaultSettings(hubID)
		if err := p.db.Create(defaults).Error; err != nil {
			return nil, &kitchen.StorageFailure{Op: "create settings", Err: err}
		}
		return defaults, nil
	}
	if err != nil {
		return nil, &kitchen.StorageFailure{Op: "get settings", Err: err}
	}
	return &settings, nil
}

// StationDirectory resolves stations from the seeded station table.
type StationDirectory struct {
	db *gorm.DB
}

func NewStationDirectory(db *gorm.DB) *StationDirectory {
	return &StationDirectory{db: db}
}

func (d *StationDirectory) Station(ctx context.Context, hubID, stationID string) (*models.Station, error) {
	var station models.Station
	err := d.db.Where("hub_id = ? AND id = ?", hubID, stationID).First(&station).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, &kitchen.NotFoundError{Kind: "station", ID: stationID}
	}
	if err != nil {
		return nil, &kitchen.StorageFailure{Op: "get station", Err: err}
	}
	return &station, nil
}
