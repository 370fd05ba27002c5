package kitchen

import (
	"sort"

	"brigade/internal/models"
)

// SortReady orders bumped tickets for pickup: higher priority first, ties
// broken first-bumped-first-served. Tickets without a bump stamp sort last.
func SortReady(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].Priority != tickets[j].Priority {
			return tickets[i].Priority > tickets[j].Priority
		}
		bi, bj := tickets[i].BumpedAt, tickets[j].BumpedAt
		switch {
		case bi == nil:
			return false
		case bj == nil:
			return true
		default:
			return bi.Before(*bj)
		}
	})
}
