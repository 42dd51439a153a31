package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coverdesk/docpipe/core"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub broadcasts job progress updates to connected WebSocket clients, so
// UIs get push updates instead of polling the job's progress record.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	once       sync.Once
	logger     *slog.Logger
}

// NewHub creates a hub; call Start before use.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "ws_hub"),
	}
}

// Start runs the hub's event loop in a goroutine.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case client := <-h.register:
				h.clients[client] = true
				h.logger.Debug("client connected", "clients", len(h.clients))
			case client := <-h.unregister:
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
				h.logger.Debug("client disconnected", "clients", len(h.clients))
			case message := <-h.broadcast:
				for client := range h.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.logger.Warn("client write failed, dropping", "err", err)
						client.Close()
						delete(h.clients, client)
					}
				}
			case <-h.done:
				for client := range h.clients {
					client.Close()
				}
				return
			}
		}
	}()
}

// Stop shuts the event loop down and closes all clients.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// RegisterClient adds a connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// UnregisterClient removes a connection from the hub.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// progressEvent is the wire format for a progress broadcast.
type progressEvent struct {
	Type     string             `json:"type"`
	JobID    uuid.UUID          `json:"job_id"`
	Progress *core.ProgressData `json:"progress"`
}

// Notify implements ingestion.Notifier. The send never blocks: when the
// hub is stopped or its buffer is full the update is dropped, since
// progress is advisory and the pipeline must not stall on slow clients.
func (h *Hub) Notify(jobID uuid.UUID, progress *core.ProgressData) {
	data, err := json.Marshal(progressEvent{Type: "progress", JobID: jobID, Progress: progress})
	if err != nil {
		h.logger.Warn("marshal progress event", "err", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
	}
}
