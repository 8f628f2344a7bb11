package service

import (
	"fmt"

	"led-frame-merger/internal/model"
)

const (
	WarnNoSelections  = "no frames found"
	WarnInvalidBase   = "invalid base configuration"
	WarnNoFrames      = "no frames found in configuration"
	warnTooManyFrames = "frame count (%d) exceeds maximum limit of %d"
)

// Concatenate joins the frames of every selection, in order, into one sequence
// for a single target slot. The first selection supplies the page settings and
// keeps its frame indices; frames from later selections are renumbered to
// continue from the end of the sequence. Selections whose page cannot be found
// contribute nothing.
//
// Concatenate never modifies its inputs.
func Concatenate(selections []model.SlotSelection) model.ConcatenationResult {
	if len(selections) == 0 {
		return model.ConcatenationResult{
			Config:  model.NewConfiguration(),
			Warning: WarnNoSelections,
		}
	}

	base := selections[0]
	if base.Source == nil {
		return model.ConcatenationResult{
			Config:  model.NewConfiguration(),
			Warning: WarnInvalidBase,
		}
	}
	basePage, ok := base.Source.FindPage(base.SourceSlot)
	if !ok {
		return model.ConcatenationResult{
			Config:  model.Configuration{Fields: base.Source.Fields.Clone()},
			Warning: WarnInvalidBase,
		}
	}

	frames := make([]model.Frame, 0, countFrames(selections))
	for _, f := range basePage.Frames.Frames {
		frames = append(frames, f.Clone())
	}
	for _, sel := range selections[1:] {
		if sel.Source == nil {
			continue
		}
		page, ok := sel.Source.FindPage(sel.SourceSlot)
		if !ok {
			continue
		}
		offset := len(frames)
		for i, f := range page.Frames.Frames {
			c := f.Clone()
			c.Index = offset + i
			frames = append(frames, c)
		}
	}

	total := len(frames)
	valid, warning := checkFrameCount(total)

	page := model.Page{
		Index:  basePage.Index,
		Frames: basePage.Frames.WithFrames(frames),
		Fields: basePage.Fields.Clone(),
	}
	return model.ConcatenationResult{
		Config:      model.Configuration{Pages: []model.Page{page}, Fields: base.Source.Fields.Clone()},
		TotalFrames: total,
		IsValid:     valid,
		Warning:     warning,
	}
}

func checkFrameCount(total int) (bool, string) {
	switch {
	case total < model.MinFrames:
		return false, WarnNoFrames
	case total > model.MaxFrames:
		return false, fmt.Sprintf(warnTooManyFrames, total, model.MaxFrames)
	default:
		return true, ""
	}
}

func countFrames(selections []model.SlotSelection) int {
	n := 0
	for _, sel := range selections {
		if sel.Source == nil {
			continue
		}
		if p, ok := sel.Source.FindPage(sel.SourceSlot); ok {
			n += p.Frames.Len()
		}
	}
	return n
}
