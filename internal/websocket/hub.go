package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/relay"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	broadcastQueue  = 64
	maxRequestIDLen = 64
)

var upgrader = websocket.Upgrader{
	// Subscriptions are scoped by request id and token, not origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub forwards pipeline events to the /ws clients subscribed to the
// request that produced them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logger.Log
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	requestID string
}

type message struct {
	requestID string
	data      []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan message, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger.New().WithField("component", "ws"),
	}
}

// Run owns the client set until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug(fmt.Sprintf("Client connected. Total: %d", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug(fmt.Sprintf("Client disconnected. Total: %d", len(h.clients)))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.requestID != msg.requestID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for broadcast, dropping it when the queue is full.
func (h *Hub) Publish(e relay.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to encode event")
		return
	}
	select {
	case h.broadcast <- message{requestID: e.RequestID, data: data}:
	default:
		h.logger.Debug("Event queue full, dropping event")
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("WebSocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.WithError(err).Warn("WebSocket write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket subscribes the connection to one request id, which the
// caller also sends as X-Request-ID on its voice request.
func handleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.URL.Query().Get("request_id"))
	if requestID == "" || len(requestID) > maxRequestIDLen {
		http.Error(w, "request_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), requestID: requestID}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// RegisterRoutes mounts the event stream at /ws, wrapped in the given
// middleware. The caller runs the hub.
func RegisterRoutes(r *mux.Router, hub *Hub, mw ...mux.MiddlewareFunc) {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, w, r)
	})
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	r.Handle("/ws", h).Methods(http.MethodGet)
}
