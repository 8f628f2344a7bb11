package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"led-frame-merger/internal/model"
	"led-frame-merger/internal/ws"
)

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkUpgrade(w, r) {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("remote", r.RemoteAddr), zap.String("uri", r.RequestURI), zap.Error(err))
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.BroadcastEvent(model.Event{Type: model.EventClientConnected, Payload: map[string]string{"id": uuid.NewString()}, CreatedAt: time.Now().UnixMilli()})
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

// SessionWebSocket streams the events of one session. The current session is
// sent first so a client that connects late starts from a known state.
func (h *Handler) SessionWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkUpgrade(w, r) {
		return
	}
	id := r.PathValue("id")
	sess, err := h.workflow.Get(id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("session ws upgrade failed", zap.String("session_id", id), zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	client := h.sessionHub.Register(id, conn)
	h.sessionHub.Push(model.Event{Type: model.EventStepChanged, SessionID: id, Payload: map[string]interface{}{"to": sess.Step}, CreatedAt: time.Now().UnixMilli()})
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) checkUpgrade(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return false
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return false
	}
	return true
}
