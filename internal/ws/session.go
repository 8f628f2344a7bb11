package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"led-frame-merger/internal/model"
)

// SessionHub fans events out to the clients watching one merge session.
type SessionHub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewSessionHub(logger *zap.Logger) *SessionHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHub{logger: logger, clients: map[string]map[*Client]struct{}{}}
}

func (h *SessionHub) Register(sessionID string, conn *websocket.Conn) *Client {
	var c *Client
	c = NewClientWithClose(conn, func() { h.Unregister(sessionID, c) })
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sessionID]; !ok {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][c] = struct{}{}
	return c
}

func (h *SessionHub) Unregister(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.clients[sessionID]; ok {
		if _, exist := m[c]; exist {
			delete(m, c)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.clients, sessionID)
		}
	}
}

func (h *SessionHub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *SessionHub) Push(evt model.Event) {
	if evt.SessionID == "" {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal session event", zap.String("session_id", evt.SessionID), zap.Error(err))
		return
	}

	// Sends happen under the read lock so Unregister cannot close a send
	// channel in between.
	var stale []*Client
	h.mu.RLock()
	for c := range h.clients[evt.SessionID] {
		select {
		case c.send <- b:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range stale {
		h.logger.Warn("session client too slow, dropping", zap.String("session_id", evt.SessionID))
		h.Unregister(evt.SessionID, c)
	}
}

// Fanout publishes each event to the global hub and to the event's session.
type Fanout struct {
	Hub      *Hub
	Sessions *SessionHub
}

func (f Fanout) Publish(evt model.Event) {
	if f.Hub != nil {
		f.Hub.BroadcastEvent(evt)
	}
	if f.Sessions != nil {
		f.Sessions.Push(evt)
	}
}
