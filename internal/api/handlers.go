package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"led-frame-merger/internal/config"
	"led-frame-merger/internal/service"
	"led-frame-merger/internal/ws"
)

type Handler struct {
	cfg        config.Config
	logger     *zap.Logger
	hub        *ws.Hub
	sessionHub *ws.SessionHub
	workflow   *service.WorkflowService
	upgrader   websocket.Upgrader
}

type apiError struct {
	Error string `json:"error"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

// writeServiceErr picks the status for an error returned by the workflow.
func writeServiceErr(w http.ResponseWriter, err error) {
	writeErr(w, statusFor(err), err)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidSlots):
		return http.StatusUnprocessableEntity
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnknownSource),
		errors.Is(err, service.ErrUnknownSlot),
		errors.Is(err, service.ErrFrameOutOfRange),
		errors.Is(err, service.ErrUnsupportedEncoding),
		errors.Is(err, service.ErrMissingBase):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeDecodeErr(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		writeErr(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	writeErr(w, http.StatusBadRequest, err)
}

func slotParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", service.ErrUnknownSlot, r.PathValue("slot"))
	}
	return n, nil
}

func atoiDefault(v string, d int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return d, nil
	}
	return strconv.Atoi(v)
}
