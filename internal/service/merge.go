package service

import "led-frame-merger/internal/model"

// ValidateAll reports whether every editable slot concatenates to a playable
// sequence. A slot missing from the map counts as having no selections.
func ValidateAll(selections model.SlotMap[[]model.SlotSelection]) bool {
	ok, _ := ValidateSlots(selections)
	return ok
}

// ValidateSlots is ValidateAll that also hands back each slot's result.
func ValidateSlots(selections model.SlotMap[[]model.SlotSelection]) (bool, model.SlotMap[model.ConcatenationResult]) {
	var results model.SlotMap[model.ConcatenationResult]
	ok := true
	for _, slot := range model.AllSlots {
		sel, _ := selections.Get(slot)
		r := Concatenate(sel)
		results.Set(slot, r)
		if !r.IsValid {
			ok = false
		}
	}
	return ok, results
}

// Merge returns a copy of base in which the frames of each slot present in
// results are replaced by the concatenated frames. Nothing else in base is
// touched. Slots the base has no page for are ignored.
func Merge(base *model.Configuration, results model.SlotMap[model.ConcatenationResult]) (model.Configuration, error) {
	if base == nil {
		return model.Configuration{}, ErrMissingBase
	}
	out := base.Clone()
	results.Each(func(slot model.Slot, r model.ConcatenationResult) {
		target := out.Page(slot.PageIndex())
		if target == nil {
			return
		}
		src, ok := r.Page()
		if !ok {
			return
		}
		target.Frames = src.Frames.Clone()
		target.Index = slot.PageIndex()
	})
	return out, nil
}
