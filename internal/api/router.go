package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"led-frame-merger/internal/config"
	"led-frame-merger/internal/service"
	"led-frame-merger/internal/ws"
)

func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	hub *ws.Hub,
	sessionHub *ws.SessionHub,
	workflow *service.WorkflowService,
) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cfg:        cfg,
		logger:     logger,
		hub:        hub,
		sessionHub: sessionHub,
		workflow:   workflow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/ws", h.WebSocket)
	mux.HandleFunc("/v1/concatenate", h.Concatenate)
	mux.HandleFunc("/v1/merge", h.Merge)

	mux.HandleFunc("/v1/sessions", h.Sessions)
	mux.HandleFunc("/v1/sessions/{id}", h.Session)
	mux.HandleFunc("/v1/sessions/{id}/ws", h.SessionWebSocket)
	mux.HandleFunc("POST /v1/sessions/{id}/sources", h.AddSource)
	mux.HandleFunc("DELETE /v1/sessions/{id}/sources/{sourceID}", h.RemoveSource)
	mux.HandleFunc("/v1/sessions/{id}/slots/{slot}", h.Slot)
	mux.HandleFunc("GET /v1/sessions/{id}/slots/{slot}/preview.png", h.SlotPreview)
	mux.HandleFunc("GET /v1/sessions/{id}/slots/{slot}/frame", h.SlotFrame)
	mux.HandleFunc("GET /v1/sessions/{id}/validate", h.Validate)
	mux.HandleFunc("POST /v1/sessions/{id}/review", h.Review)
	mux.HandleFunc("POST /v1/sessions/{id}/back", h.Back)
	mux.HandleFunc("POST /v1/sessions/{id}/save", h.Save)

	return logRequests(logger, limitBody(cfg.MaxUploadSizeBytes, mux))
}

func limitBody(maxSize int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case rec.status >= 500:
			logger.Error("request failed", fields...)
		case rec.status >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Debug("request", fields...)
		}
	})
}
