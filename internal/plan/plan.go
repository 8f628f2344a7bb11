// Package plan reads merge plans: YAML files that describe, for each LED slot,
// which pages of which files make up the merged configuration.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"led-frame-merger/internal/model"
)

type Selection struct {
	File string `yaml:"file"`
	Slot int    `yaml:"slot"`
}

// Plan is a merge described on disk. Slots lists ordered selections per
// target slot; a slot left out takes its frames from the base unchanged.
// Mappings are the single-source keep/replace/combine form. A plan uses one
// form or the other.
type Plan struct {
	Base     string               `yaml:"base"`
	Output   string               `yaml:"output,omitempty"`
	Slots    map[int][]Selection  `yaml:"slots,omitempty"`
	Mappings []model.MergeMapping `yaml:"mappings,omitempty"`
}

func Read(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.resolve(filepath.Dir(path))
	return p, nil
}

func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) Validate() error {
	if p.Base == "" {
		return errors.New("plan: base is required")
	}
	if len(p.Slots) > 0 && len(p.Mappings) > 0 {
		return errors.New("plan: use either slots or mappings, not both")
	}
	for n, sels := range p.Slots {
		if _, err := model.ParseSlot(n); err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		for i, sel := range sels {
			if sel.File == "" {
				return fmt.Errorf("plan: slot %d selection %d has no file", n, i)
			}
		}
	}
	for _, m := range p.Mappings {
		if _, err := model.ParseSlot(m.Slot); err != nil {
			return fmt.Errorf("plan: %w", err)
		}
	}
	return nil
}

// Files lists every file the plan reads, base first, without duplicates.
func (p *Plan) Files() []string {
	seen := map[string]bool{}
	var out []string
	add := func(f string) {
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	add(p.Base)
	for _, slot := range model.AllSlots {
		for _, sel := range p.Slots[slot.PageIndex()] {
			add(sel.File)
		}
	}
	return out
}

// resolve makes relative file names relative to the plan's directory.
func (p *Plan) resolve(dir string) {
	abs := func(f string) string {
		if f == "" || filepath.IsAbs(f) {
			return f
		}
		return filepath.Join(dir, f)
	}
	p.Base = abs(p.Base)
	p.Output = abs(p.Output)
	for n, sels := range p.Slots {
		for i := range sels {
			sels[i].File = abs(sels[i].File)
		}
		p.Slots[n] = sels
	}
	for i := range p.Mappings {
		p.Mappings[i].SourceFile = abs(p.Mappings[i].SourceFile)
	}
}
