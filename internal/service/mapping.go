package service

import (
	"context"
	"fmt"

	"led-frame-merger/internal/model"
)

type ConfigurationLoader interface {
	Load(ctx context.Context, path string) (model.Configuration, error)
}

// ApplyMappings merges one source file per slot into a copy of base. keep leaves
// the slot alone, replace swaps in the source page's frames and combine appends
// them after the frames already there.
func ApplyMappings(ctx context.Context, base *model.Configuration, mappings []model.MergeMapping, loader ConfigurationLoader) (model.Configuration, error) {
	if base == nil {
		return model.Configuration{}, ErrMissingBase
	}
	out := base.Clone()
	for _, m := range mappings {
		if !m.IsValid() {
			if m.Action != model.ActionKeep && m.Action != model.ActionReplace && m.Action != model.ActionCombine {
				return model.Configuration{}, fmt.Errorf("unknown action: %s", m.Action)
			}
			return model.Configuration{}, fmt.Errorf("invalid mapping for slot %d", m.Slot)
		}
		if m.Action == model.ActionKeep {
			continue
		}

		src, err := loader.Load(ctx, m.SourceFile)
		if err != nil {
			return model.Configuration{}, err
		}
		var srcPage *model.Page
		if m.TargetSlot != nil {
			srcPage = src.Page(*m.TargetSlot)
		} else if len(src.Pages) > 0 {
			srcPage = &src.Pages[0]
		}
		if srcPage == nil {
			continue
		}

		target := out.Page(m.Slot)
		if target == nil {
			return model.Configuration{}, fmt.Errorf("slot %d: target page not found", m.Slot)
		}
		switch m.Action {
		case model.ActionReplace:
			target.Frames = srcPage.Frames.Clone()
		case model.ActionCombine:
			combined := make([]model.Frame, 0, target.Frames.Len()+srcPage.Frames.Len())
			for _, f := range target.Frames.Frames {
				combined = append(combined, f.Clone())
			}
			offset := len(combined)
			for i, f := range srcPage.Frames.Frames {
				c := f.Clone()
				c.Index = offset + i
				combined = append(combined, c)
			}
			target.Frames = target.Frames.WithFrames(combined)
		}
	}
	return out, nil
}
