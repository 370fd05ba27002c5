package kitchen_test

import (
	"context"
	"testing"
	"time"

	"brigade/internal/database"
	"brigade/internal/kitchen"
	"brigade/internal/models"
)

func enableAutoBump(store *database.MemStore, hub string, delaySeconds int) {
	settings := models.DefaultSettings(hub)
	settings.AutoBumpEnabled = true
	settings.AutoBumpDelaySeconds = delaySeconds
	store.PutSettings(settings)
}

func advanceToInProgress(t *testing.T, machine *kitchen.Machine, ticketID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := machine.Apply(ctx, ticketID, kitchen.TriggerAccept, "chef.alice"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := machine.Apply(ctx, ticketID, kitchen.TriggerStart, "chef.alice"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
}

func TestAutoBumper_BumpsOverdueTickets(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	clock := newTestClock()
	machine := kitchen.NewMachine(store, nil).WithClock(clock.Now)
	bumper := kitchen.NewAutoBumper(store, store, machine, time.Second).WithClock(clock.Now)
	enableAutoBump(store, "hub-1", 300)

	ticket := seedTicket(t, store, clock, "hub-1")
	advanceToInProgress(t, machine, ticket.ID)

	// One second shy of the delay: nothing happens.
	clock.Advance(299 * time.Second)
	bumper.Tick(ctx)
	current, _ := store.Tickets().Get(ctx, ticket.ID)
	if current.State != models.TicketInProgress {
		t.Fatalf("state before delay = %q, want in_progress", current.State)
	}

	// Past the delay: bumped on behalf of the system.
	clock.Advance(2 * time.Second)
	bumper.Tick(ctx)
	current, _ = store.Tickets().Get(ctx, ticket.ID)
	if current.State != models.TicketBumped {
		t.Fatalf("state after delay = %q, want bumped", current.State)
	}

	entries, _ := store.Audit().Query(ctx, kitchen.AuditFilter{TicketID: ticket.ID, Action: models.ActionBumped})
	if len(entries) != 1 {
		t.Fatalf("bumped audit entries = %d, want 1", len(entries))
	}
	if entries[0].Actor != kitchen.SystemActor {
		t.Errorf("bump actor = %q, want %q", entries[0].Actor, kitchen.SystemActor)
	}
}

func TestAutoBumper_ManualBumpIsNeverDoubled(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	clock := newTestClock()
	machine := kitchen.NewMachine(store, nil).WithClock(clock.Now)
	bumper := kitchen.NewAutoBumper(store, store, machine, time.Second).WithClock(clock.Now)
	enableAutoBump(store, "hub-1", 300)

	ticket := seedTicket(t, store, clock, "hub-1")
	advanceToInProgress(t, machine, ticket.ID)

	// Human bumps before the delay elapses.
	clock.Advance(250 * time.Second)
	if _, err := machine.Apply(ctx, ticket.ID, kitchen.TriggerBump, "chef.alice"); err != nil {
		t.Fatalf("manual bump failed: %v", err)
	}
	manual, _ := store.Tickets().Get(ctx, ticket.ID)
	manualBumpedAt := *manual.BumpedAt

	// The scheduler keeps ticking well past the delay; the ticket is no
	// longer in progress so it never sees a second bump.
	clock.Advance(time.Hour)
	bumper.Tick(ctx)

	current, _ := store.Tickets().Get(ctx, ticket.ID)
	if current.State != models.TicketBumped {
		t.Fatalf("state = %q, want bumped", current.State)
	}
	if !current.BumpedAt.Equal(manualBumpedAt) {
		t.Error("scheduler overwrote the manual bump stamp")
	}

	entries, _ := store.Audit().Query(ctx, kitchen.AuditFilter{TicketID: ticket.ID, Action: models.ActionBumped})
	if len(entries) != 1 {
		t.Errorf("bumped audit entries = %d, want 1", len(entries))
	}
}

func TestAutoBumper_HubsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	clock := newTestClock()
	machine := kitchen.NewMachine(store, nil).WithClock(clock.Now)
	bumper := kitchen.NewAutoBumper(store, store, machine, time.Second).WithClock(clock.Now)

	enableAutoBump(store, "hub-fast", 60)
	enableAutoBump(store, "hub-slow", 600)
	store.PutSettings(models.DefaultSettings("hub-off")) // auto-bump disabled

	tickets := make(map[string]string)
	for _, hub := range []string{"hub-fast", "hub-slow", "hub-off"} {
		now := clock.Now()
		ticket := &models.Ticket{
			ID:               "t-" + hub,
			HubID:            hub,
			Station:          "hot",
			State:            models.TicketInProgress,
			CreatedAt:        now,
			LastTransitionAt: now,
		}
		if err := store.Tickets().Create(ctx, ticket); err != nil {
			t.Fatalf("seeding %s failed: %v", hub, err)
		}
		tickets[hub] = ticket.ID
	}

	clock.Advance(120 * time.Second)
	bumper.Tick(ctx)

	wantStates := map[string]models.TicketState{
		"hub-fast": models.TicketBumped,     // 120s > 60s delay
		"hub-slow": models.TicketInProgress, // 120s < 600s delay
		"hub-off":  models.TicketInProgress, // disabled
	}
	for hub, want := range wantStates {
		current, err := store.Tickets().Get(ctx, tickets[hub])
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", hub, err)
		}
		if current.State != want {
			t.Errorf("%s state = %q, want %q", hub, current.State, want)
		}
	}
}

func TestAutoBumper_OnlyInProgressTicketsQualify(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	clock := newTestClock()
	machine := kitchen.NewMachine(store, nil).WithClock(clock.Now)
	bumper := kitchen.NewAutoBumper(store, store, machine, time.Second).WithClock(clock.Now)
	enableAutoBump(store, "hub-1", 60)

	ticket := seedTicket(t, store, clock, "hub-1") // stays received

	clock.Advance(time.Hour)
	bumper.Tick(ctx)

	current, _ := store.Tickets().Get(ctx, ticket.ID)
	if current.State != models.TicketReceived {
		t.Errorf("state = %q, want received untouched", current.State)
	}
}
