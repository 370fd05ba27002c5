package kitchen

import (
	"context"
	"log"
	"time"

	"brigade/internal/models"
	"brigade/internal/monitoring"
)

// AutoBumper is the background process that promotes aging tickets. On each
// tick it scans every hub with active tickets independently; hubs with
// auto-bump disabled are skipped, so one hub's delay never affects another's
// tickets.
type AutoBumper struct {
	store    Store
	settings SettingsProvider
	machine  *Machine
	interval time.Duration
	clock    func() time.Time
}

// NewAutoBumper creates a scheduler ticking at the given interval.
func NewAutoBumper(store Store, settings SettingsProvider, machine *Machine, interval time.Duration) *AutoBumper {
	return &AutoBumper{
		store:    store,
		settings: settings,
		machine:  machine,
		interval: interval,
		clock:    time.Now,
	}
}

// WithClock overrides the scheduler's clock.
func (b *AutoBumper) WithClock(clock func() time.Time) *AutoBumper {
	b.clock = clock
	return b
}

// Run ticks until the context is cancelled.
func (b *AutoBumper) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	log.Printf("auto-bump scheduler running every %s", b.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick scans for in-progress tickets that have outlived their hub's
// auto-bump delay and bumps each on behalf of the system actor. A ticket a
// human bumped between the scan and the apply loses no sleep: the transition
// guard rejects the stale bump and the scheduler moves on.
func (b *AutoBumper) Tick(ctx context.Context) {
	hubs, err := b.store.Tickets().Hubs(ctx)
	if err != nil {
		log.Printf("auto-bump: cannot list hubs: %v", err)
		return
	}

	for _, hub := range hubs {
		settings, err := b.settings.Settings(ctx, hub)
		if err != nil {
			log.Printf("auto-bump: cannot load settings for hub %s: %v", hub, err)
			continue
		}
		if !settings.AutoBumpEnabled {
			continue
		}
		b.scanHub(ctx, hub, settings)
	}
}

func (b *AutoBumper) scanHub(ctx context.Context, hub string, settings *models.KitchenSettings) {
	tickets, err := b.store.Tickets().List(ctx, TicketFilter{
		HubID:  hub,
		States: []models.TicketState{models.TicketInProgress},
	})
	if err != nil {
		log.Printf("auto-bump: cannot list tickets for hub %s: %v", hub, err)
		return
	}

	now := b.clock()
	delay := settings.AutoBumpDelay()
	for i := range tickets {
		t := &tickets[i]
		if Elapsed(t, now) < delay {
			continue
		}
		if _, err := b.machine.Apply(ctx, t.ID, TriggerBump, SystemActor); err != nil {
			if _, ok := err.(*IllegalTransitionError); ok {
				// Lost the race to a human action; the next tick
				// re-evaluates naturally.
				continue
			}
			log.Printf("auto-bump: bump of ticket %s failed: %v", t.ID, err)
			continue
		}
		monitoring.RecordAutoBump(hub)
	}
}
