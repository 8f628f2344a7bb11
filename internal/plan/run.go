package plan

import (
	"context"
	"fmt"

	"led-frame-merger/internal/model"
	"led-frame-merger/internal/service"
)

// Loader reads configuration files. storage.FileRepository satisfies it.
type Loader interface {
	service.ConfigurationLoader
	LoadAll(ctx context.Context, paths []string) ([]model.Configuration, error)
}

type Outcome struct {
	Config model.Configuration
	Valid  bool
	Slots  model.SlotMap[model.ConcatenationResult]
}

// Warnings lists the slot warnings in slot order, labelled for display.
func (o Outcome) Warnings() []string {
	var out []string
	o.Slots.Each(func(slot model.Slot, r model.ConcatenationResult) {
		if r.Warning != "" {
			out = append(out, fmt.Sprintf("%s (page %d): %s", slot.Label(), slot.PageIndex(), r.Warning))
		}
	})
	return out
}

// Execute loads the plan's files and builds the merged configuration. When any
// slot is invalid the outcome carries the per-slot results and no config.
func Execute(ctx context.Context, p *Plan, loader Loader) (Outcome, error) {
	if len(p.Mappings) > 0 {
		return executeMappings(ctx, p, loader)
	}

	files := p.Files()
	cfgs, err := loader.LoadAll(ctx, files)
	if err != nil {
		return Outcome{}, err
	}
	byFile := make(map[string]model.Configuration, len(files))
	for i, f := range files {
		byFile[f] = cfgs[i]
	}
	base := byFile[p.Base]

	var selections model.SlotMap[[]model.SlotSelection]
	for _, slot := range model.AllSlots {
		sels, ok := p.Slots[slot.PageIndex()]
		if !ok {
			sels = []Selection{{File: p.Base, Slot: slot.PageIndex()}}
		}
		resolved := make([]model.SlotSelection, 0, len(sels))
		for _, sel := range sels {
			cfg := byFile[sel.File].Clone()
			resolved = append(resolved, model.SlotSelection{Source: &cfg, SourceSlot: sel.Slot})
		}
		selections.Set(slot, resolved)
	}

	ok, results := service.ValidateSlots(selections)
	if !ok {
		return Outcome{Slots: results}, nil
	}
	merged, err := service.Merge(&base, results)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Config: merged, Valid: true, Slots: results}, nil
}

func executeMappings(ctx context.Context, p *Plan, loader Loader) (Outcome, error) {
	base, err := loader.Load(ctx, p.Base)
	if err != nil {
		return Outcome{}, err
	}
	merged, err := service.ApplyMappings(ctx, &base, p.Mappings, loader)
	if err != nil {
		return Outcome{}, err
	}

	// Every slot of the result must still be playable.
	var selections model.SlotMap[[]model.SlotSelection]
	for _, slot := range model.AllSlots {
		cfg := merged.Clone()
		selections.Set(slot, []model.SlotSelection{{Source: &cfg, SourceSlot: slot.PageIndex()}})
	}
	ok, results := service.ValidateSlots(selections)
	if !ok {
		return Outcome{Slots: results}, nil
	}
	return Outcome{Config: merged, Valid: true, Slots: results}, nil
}
