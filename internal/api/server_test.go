package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brigade/internal/api"
	"brigade/internal/database"
	"brigade/internal/kitchen"
	"brigade/internal/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T) (*api.Server, *database.MemStore) {
	t.Helper()
	store := database.NewMemStore()
	store.PutStation(models.Station{ID: "hot", HubID: "hub-1", Name: "Hot Line", Active: true})
	store.PutStation(models.Station{ID: "cold", HubID: "hub-1", Name: "Cold Line", Active: false})

	machine := kitchen.NewMachine(store, nil)
	router := kitchen.NewRouter(store, store, store, machine)
	svc := kitchen.NewService(store, store, machine, router)
	return api.NewServer(svc, nil, testSecret), store
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, server *api.Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

func seedReceivedTicket(t *testing.T, store *database.MemStore, id string) {
	t.Helper()
	now := time.Now()
	err := store.Tickets().Create(context.Background(), &models.Ticket{
		ID: id, HubID: "hub-1", Station: "hot",
		State: models.TicketReceived, CreatedAt: now, LastTransitionAt: now,
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	server, _ := testServer(t)
	w := doRequest(t, server, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	server, _ := testServer(t)

	w := doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/tickets/active", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/tickets/active", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	server, _ := testServer(t)
	token := signToken(t, "pos-terminal")

	w := doRequest(t, server, http.MethodPost, "/api/v1/orders", token, models.IncomingOrder{
		ID: "order-1", HubID: "hub-1", Priority: 1,
		Items: []models.OrderLine{
			{ItemID: "i-1", Station: "hot"},
			{ItemID: "i-2", Station: "cold"}, // inactive
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var result kitchen.RoutingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Tickets, 1)
	assert.Len(t, result.Failures, 1)
}

func TestPlaceOrder_AllLinesFail(t *testing.T) {
	server, _ := testServer(t)
	token := signToken(t, "pos-terminal")

	w := doRequest(t, server, http.MethodPost, "/api/v1/orders", token, models.IncomingOrder{
		ID: "order-2", HubID: "hub-1",
		Items: []models.OrderLine{{ItemID: "i-1", Station: "nowhere"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPlaceOrder_MissingIdentifiers(t *testing.T) {
	server, _ := testServer(t)
	token := signToken(t, "pos-terminal")

	w := doRequest(t, server, http.MethodPost, "/api/v1/orders", token, models.IncomingOrder{
		Items: []models.OrderLine{{ItemID: "i-1", Station: "hot"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransition(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "chef.alice")

	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/transition", token,
		gin.H{"trigger": "accept"})
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, models.TicketAccepted, ticket.State)

	// The acting chef is on the audit trail.
	entries, err := store.Audit().Query(context.Background(), kitchen.AuditFilter{TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chef.alice", entries[0].Actor)
}

func TestTransition_IllegalIsConflict(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "chef.alice")

	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/transition", token,
		gin.H{"trigger": "serve"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransition_UnknownTicketIsNotFound(t *testing.T) {
	server, _ := testServer(t)
	token := signToken(t, "chef.alice")

	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/missing/transition", token,
		gin.H{"trigger": "accept"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransition_UnknownTriggerIsBadRequest(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "chef.alice")

	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/transition", token,
		gin.H{"trigger": "yeet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePriority(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "manager.carol")

	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/priority", token,
		gin.H{"priority": 3})
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, 3, ticket.Priority)

	// Zero is a legal priority; only a missing field is rejected.
	w = doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/priority", token,
		gin.H{"priority": 0})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/priority", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListActiveEndpoint(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	seedReceivedTicket(t, store, "t-2")
	token := signToken(t, "display-1")

	w := doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/tickets/active", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tickets []kitchen.TicketView `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Tickets, 2)
}

func TestCountsEndpoint(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "display-1")

	w := doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/tickets/counts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var counts kitchen.Counts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, 1, counts.Received)
}

func TestHistoryEndpoint(t *testing.T) {
	server, store := testServer(t)
	seedReceivedTicket(t, store, "t-1")
	token := signToken(t, "chef.alice")

	// Generate an audit entry.
	w := doRequest(t, server, http.MethodPost, "/api/v1/tickets/t-1/transition", token,
		gin.H{"trigger": "accept"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/history?actor=chef.alice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, models.ActionAccepted, body.Entries[0].Action)

	w = doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/history?from=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsEndpoint(t *testing.T) {
	server, _ := testServer(t)
	token := signToken(t, "display-1")

	w := doRequest(t, server, http.MethodGet, "/api/v1/hubs/hub-1/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var settings models.KitchenSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "hub-1", settings.HubID)
	assert.Equal(t, 12, settings.ItemsPerPage)
}
