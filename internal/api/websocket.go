package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Display terminals connect from kiosk origins
	},
}

// DisplayHub fans ticket events out to the kitchen display terminals
// connected for each hub, so displays re-render without polling.
type DisplayHub struct {
	mu      sync.RWMutex
	clients map[string]map[*displayClient]bool
}

// NewDisplayHub creates an empty display hub.
func NewDisplayHub() *DisplayHub {
	return &DisplayHub{clients: make(map[string]map[*displayClient]bool)}
}

type displayClient struct {
	conn  *websocket.Conn
	send  chan []byte
	hub   *DisplayHub
	hubID string
}

// Broadcast queues a payload to every display watching the hub. Slow
// clients drop messages rather than block the sender.
func (h *DisplayHub) Broadcast(hubID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[hubID] {
		select {
		case client.send <- payload:
		default:
			log.Println("display feed buffer full, dropping message")
		}
	}
}

// handleWebSocket upgrades the connection and registers the display.
func (h *DisplayHub) handleWebSocket(c *gin.Context) {
	hubID := c.Param("hub")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &displayClient{
		conn:  conn,
		send:  make(chan []byte, 256),
		hub:   h,
		hubID: hubID,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *DisplayHub) register(client *displayClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.hubID] == nil {
		h.clients[client.hubID] = make(map[*displayClient]bool)
	}
	h.clients[client.hubID][client] = true
}

func (h *DisplayHub) unregister(client *displayClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[client.hubID]; ok {
		delete(clients, client)
	}
}

// readPump drains the connection; displays only listen, so anything other
// than control frames is discarded.
func (c *displayClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pushes queued events to the display and keeps the connection
// alive with pings.
func (c *displayClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
