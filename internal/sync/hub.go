package sync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 2 * time.Second

// Hub fans title events out to websocket clients. Each connection belongs
// to one user and only receives that user's events.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

type Stats struct {
	WSClients int `json:"ws_clients"`
	Users     int `json:"users"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

var welcome = []byte(`{"type":"welcome","transport":"websocket"}`)

// AddWS registers ws for userID and greets it. The greeting is written under
// the hub lock so it cannot interleave with a concurrent Publish.
func (h *Hub) AddWS(ws *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ws] = userID
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.TextMessage, welcome)
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish delivers ev to the connections of ev.UserID.
func (h *Hub) Publish(ev TitleEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.send(ev, func(owner string) bool { return owner == ev.UserID })
}

// BroadcastJSON delivers v to every connection.
func (h *Hub) BroadcastJSON(v any) {
	h.send(v, func(string) bool { return true })
}

func (h *Hub) send(v any, want func(owner string) bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("[ws] marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws, owner := range h.clients {
		if !want(owner) {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := make(map[string]struct{})
	for _, u := range h.clients {
		users[u] = struct{}{}
	}
	return Stats{WSClients: len(h.clients), Users: len(users)}
}
