package api

import (
	"net/http"

	"led-frame-merger/internal/model"
	"led-frame-merger/internal/service"
)

// inlineSelection carries its source configuration in the request itself.
type inlineSelection struct {
	Config     *model.Configuration `json:"config"`
	SourceSlot int                  `json:"source_slot"`
}

type concatenateRequest struct {
	Selections []inlineSelection `json:"selections"`
}

type mergeRequest struct {
	Base  *model.Configuration             `json:"base"`
	Slots model.SlotMap[[]inlineSelection] `json:"slots"`
}

type mergeResponse struct {
	IsValid bool                                     `json:"is_valid"`
	Config  *model.Configuration                     `json:"config,omitempty"`
	Slots   model.SlotMap[model.ConcatenationResult] `json:"slots"`
	Error   string                                   `json:"error,omitempty"`
}

func toSelections(in []inlineSelection) []model.SlotSelection {
	out := make([]model.SlotSelection, 0, len(in))
	for _, sel := range in {
		out = append(out, model.SlotSelection{Source: sel.Config, SourceSlot: sel.SourceSlot})
	}
	return out
}

// Concatenate runs the concatenator over configurations posted inline.
func (h *Handler) Concatenate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req concatenateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.Concatenate(toSelections(req.Selections)))
}

// Merge validates every slot and, when all are playable, merges them into the
// posted base. Invalid slots answer 422 with each slot's result.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeErr(w, err)
		return
	}
	if req.Base == nil {
		writeErr(w, http.StatusBadRequest, service.ErrMissingBase)
		return
	}

	var selections model.SlotMap[[]model.SlotSelection]
	req.Slots.Each(func(slot model.Slot, in []inlineSelection) {
		selections.Set(slot, toSelections(in))
	})
	ok, results := service.ValidateSlots(selections)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, mergeResponse{
			Slots: results,
			Error: service.ErrInvalidSlots.Error(),
		})
		return
	}
	merged, err := service.Merge(req.Base, results)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mergeResponse{IsValid: true, Config: &merged, Slots: results})
}
