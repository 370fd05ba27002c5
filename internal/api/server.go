package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brigade/internal/kitchen"
	"brigade/internal/models"
)

// Server is the HTTP surface exposed to display and UI collaborators.
type Server struct {
	Router  *gin.Engine
	svc     *kitchen.Service
	display *DisplayHub
}

// NewServer builds the gin router over the kitchen service. The display hub
// may be nil when no live feed is wired.
func NewServer(svc *kitchen.Service, display *DisplayHub, authSecret string) *Server {
	router := gin.Default()

	s := &Server{
		Router:  router,
		svc:     svc,
		display: display,
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "brigade kitchen service is running"})
	})

	if display != nil {
		router.GET("/ws/:hub", display.handleWebSocket)
	}

	v1 := router.Group("/api/v1")
	v1.Use(ActorMiddleware(authSecret))
	{
		// Order intake
		v1.POST("/orders", s.PlaceOrder)

		// Display views
		v1.GET("/hubs/:hub/tickets/active", s.ListActive)
		v1.GET("/hubs/:hub/tickets/ready", s.ListReady)
		v1.GET("/hubs/:hub/tickets/counts", s.TicketCounts)
		v1.GET("/hubs/:hub/history", s.ListHistory)
		v1.GET("/hubs/:hub/settings", s.HubSettings)

		// Ticket actions
		v1.POST("/tickets/:id/transition", s.Transition)
		v1.POST("/tickets/:id/priority", s.ChangePriority)
	}

	return s
}

// PlaceOrder routes an order into tickets; partial routing failures come
// back alongside the created tickets.
func (s *Server) PlaceOrder(c *gin.Context) {
	var order models.IncomingOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if order.ID == "" || order.HubID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id and hub_id are required"})
		return
	}

	result, err := s.svc.PlaceOrder(c.Request.Context(), order)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if len(result.Tickets) == 0 && len(result.Failures) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// ListActive returns the station board for a hub.
func (s *Server) ListActive(c *gin.Context) {
	views, err := s.svc.ListActive(c.Request.Context(), c.Param("hub"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": views})
}

// ListReady returns the hub's ready queue.
func (s *Server) ListReady(c *gin.Context) {
	tickets, err := s.svc.ListReady(c.Request.Context(), c.Param("hub"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// TicketCounts returns per-lane tallies for the hub.
func (s *Server) TicketCounts(c *gin.Context) {
	counts, err := s.svc.TicketCounts(c.Request.Context(), c.Param("hub"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ListHistory queries the hub's audit log.
func (s *Server) ListHistory(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.svc.ListHistory(c.Request.Context(), c.Param("hub"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// HubSettings exposes the hub's read-only configuration.
func (s *Server) HubSettings(c *gin.Context) {
	settings, err := s.svc.HubSettings(c.Request.Context(), c.Param("hub"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Transition applies a trigger to a ticket on behalf of the caller.
func (s *Server) Transition(c *gin.Context) {
	var req struct {
		Trigger string `json:"trigger"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trigger, err := kitchen.ParseTrigger(req.Trigger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := s.svc.Transition(c.Request.Context(), c.Param("id"), trigger, Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ChangePriority updates a ticket's priority on behalf of the caller.
func (s *Server) ChangePriority(c *gin.Context) {
	var req struct {
		Priority *int `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority is required"})
		return
	}

	ticket, err := s.svc.ChangePriority(c.Request.Context(), c.Param("id"), *req.Priority, Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// respondError maps the kitchen error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch err.(type) {
	case *kitchen.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case *kitchen.IllegalTransitionError:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case *kitchen.StorageFailure:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
