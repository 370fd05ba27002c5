package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brigade/internal/kitchen"
	"brigade/internal/models"
)

// parseAuditFilter reads history query parameters. Times are RFC 3339.
func parseAuditFilter(c *gin.Context) (kitchen.AuditFilter, error) {
	filter := kitchen.AuditFilter{
		TicketID: c.Query("ticket"),
		OrderID:  c.Query("order"),
		Station:  c.Query("station"),
		Actor:    c.Query("actor"),
		Action:   models.Action(c.Query("action")),
	}

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid from time: %w", err)
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid to time: %w", err)
		}
		filter.To = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset %q", v)
		}
		filter.Offset = n
	}

	return filter, nil
}
