package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-frame-merger/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt model.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	return evt
}

func TestSessionHubPushesToItsSession(t *testing.T) {
	h := NewSessionHub(nil)
	registered := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := h.Register(r.URL.Query().Get("session"), conn)
		go c.WritePump()
		go c.ReadPump()
		registered <- struct{}{}
	}))
	defer srv.Close()

	a, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?session=a", nil)
	require.NoError(t, err)
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?session=b", nil)
	require.NoError(t, err)
	defer b.Close()
	<-registered
	<-registered

	assert.Equal(t, 1, h.Count("a"))
	h.Push(model.Event{Type: model.EventSlotConcat, SessionID: "b", Payload: map[string]int{"slot": 5}})
	h.Push(model.Event{Type: model.EventSessionCreated})

	evt := readEvent(t, b)
	assert.Equal(t, model.EventSlotConcat, evt.Type)
	assert.Equal(t, "b", evt.SessionID)

	require.NoError(t, a.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = a.ReadMessage()
	assert.Error(t, err)
}

func TestHubBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	registered := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn)
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump()
		registered <- struct{}{}
	}))
	defer srv.Close()

	conn := dial(t, srv)
	<-registered

	Fanout{Hub: hub}.Publish(model.Event{Type: model.EventMergeCompleted, SessionID: "s1"})
	evt := readEvent(t, conn)
	assert.Equal(t, model.EventMergeCompleted, evt.Type)
	assert.Equal(t, "s1", evt.SessionID)
}

func TestSessionHubDropsFullClients(t *testing.T) {
	h := NewSessionHub(nil)
	c := h.Register("s1", nil)
	for i := 0; i < cap(c.send); i++ {
		h.Push(model.Event{Type: model.EventSlotConcat, SessionID: "s1"})
	}
	assert.Equal(t, 1, h.Count("s1"))

	h.Push(model.Event{Type: model.EventSlotConcat, SessionID: "s1"})
	assert.Equal(t, 0, h.Count("s1"))
	_, open := <-c.send
	assert.True(t, open)
}

func TestSessionHubPushRacesUnregister(t *testing.T) {
	h := NewSessionHub(nil)
	for i := 0; i < 500; i++ {
		c := h.Register("s1", nil)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Push(model.Event{Type: model.EventStepChanged, SessionID: "s1"})
		}()
		go func() {
			defer wg.Done()
			h.Unregister("s1", c)
		}()
		wg.Wait()
	}
	assert.Equal(t, 0, h.Count("s1"))
}
