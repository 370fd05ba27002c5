package kitchen

import (
	"fmt"

	"brigade/internal/models"
)

// RoutingError reports one order line that could not be turned into a
// ticket. Other lines of the same order are unaffected.
type RoutingError struct {
	OrderID string
	ItemID  string
	Station string
	Reason  string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("cannot route item %s of order %s to station %q: %s",
		e.ItemID, e.OrderID, e.Station, e.Reason)
}

// IllegalTransitionError reports a trigger that is not valid for the
// ticket's current state.
type IllegalTransitionError struct {
	TicketID string
	State    models.TicketState
	Trigger  Trigger
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("ticket %s: trigger %q is not legal in state %q",
		e.TicketID, e.Trigger, e.State)
}

// NotFoundError reports an unknown ticket or order reference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// StorageFailure wraps an error from the underlying persistence. A storage
// failure during a transition rolls back both the state change and the audit
// entry; nothing is left half-applied.
type StorageFailure struct {
	Op  string
	Err error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageFailure) Unwrap() error {
	return e.Err
}
