package sync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Hub tracks websocket connections per user.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

type Stats struct {
	Users   int `json:"users"`
	Clients int `json:"clients"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.clients[userID] = conns
	}
	conns[ws] = struct{}{}
}

func (h *Hub) Remove(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	h.removeLocked(userID, ws)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(userID string, ws *websocket.Conn) {
	_ = ws.Close()
	conns := h.clients[userID]
	delete(conns, ws)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
}

// BroadcastToUser writes v as JSON to every connection of userID. Broken
// connections are dropped.
func (h *Hub) BroadcastToUser(userID string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients[userID] {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.removeLocked(userID, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{Users: len(h.clients)}
	for _, conns := range h.clients {
		s.Clients += len(conns)
	}
	return s
}
