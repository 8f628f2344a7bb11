package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"led-frame-merger/internal/model"
	"led-frame-merger/internal/service"
)

type fileRequest struct {
	Name   string               `json:"name"`
	Config *model.Configuration `json:"config"`
}

type createSessionRequest struct {
	BaseName string               `json:"base_name"`
	Config   *model.Configuration `json:"config"`
}

type selectionsRequest struct {
	Selections []model.SelectionRef `json:"selections"`
}

type reviewRejection struct {
	Error  string             `json:"error"`
	Report service.SlotReport `json:"report"`
}

// Sessions lists sessions (GET) or starts a new one from a base file (POST).
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.workflow.List()})
	case http.MethodPost:
		var req createSessionRequest
		if err := decodeBody(r, &req); err != nil {
			writeDecodeErr(w, err)
			return
		}
		if req.Config == nil {
			writeErr(w, http.StatusBadRequest, service.ErrMissingBase)
			return
		}
		sess, err := h.workflow.CreateSession(req.BaseName, *req.Config)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		sess, err := h.workflow.Get(id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodDelete:
		if err := h.workflow.Reset(id); err != nil {
			writeServiceErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) AddSource(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeErr(w, err)
		return
	}
	if req.Config == nil {
		writeErr(w, http.StatusBadRequest, errors.New("config required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("name required"))
		return
	}
	src, err := h.workflow.AddSource(r.PathValue("id"), req.Name, *req.Config)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (h *Handler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.RemoveSource(r.PathValue("id"), r.PathValue("sourceID")); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Slot reads (GET) or replaces (PUT) the selections of one LED slot. Both
// answer with the slot's concatenation result.
func (h *Handler) Slot(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")

	var result model.ConcatenationResult
	switch r.Method {
	case http.MethodGet:
		result, err = h.workflow.SlotResult(id, slot)
	case http.MethodPut:
		var req selectionsRequest
		if err := decodeBody(r, &req); err != nil {
			writeDecodeErr(w, err)
			return
		}
		result, err = h.workflow.SetSelections(id, slot, req.Selections)
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) SlotPreview(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	frame, err := atoiDefault(r.URL.Query().Get("frame"), 0)
	if err != nil {
		writeErr(w, http.StatusBadRequest, errors.New("frame must be an integer"))
		return
	}
	png, err := h.workflow.SlotPreview(r.PathValue("id"), slot, frame)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *Handler) SlotFrame(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	frame, err := atoiDefault(q.Get("frame"), 0)
	if err != nil {
		writeErr(w, http.StatusBadRequest, errors.New("frame must be an integer"))
		return
	}
	encoding := q.Get("encoding")
	if encoding == "" {
		encoding = service.EncodingRGB24
	}
	payload, err := h.workflow.SlotFramePayload(r.PathValue("id"), slot, frame, encoding)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Frame-Encoding", strings.ToLower(encoding))
	_, _ = w.Write(payload)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	report, err := h.workflow.Validate(r.PathValue("id"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	report, err := h.workflow.Review(r.PathValue("id"))
	if errors.Is(err, service.ErrInvalidSlots) {
		writeJSON(w, http.StatusUnprocessableEntity, reviewRejection{Error: err.Error(), Report: report})
		return
	}
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := h.workflow.Back(r.PathValue("id"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	res, err := h.workflow.Save(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Warn("save failed", zap.String("session_id", r.PathValue("id")), zap.Error(err))
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
