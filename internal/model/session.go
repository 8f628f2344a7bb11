package model

import "time"

type Step string

const (
	StepSelectBase        Step = "select_base"
	StepConfigureMappings Step = "configure_mappings"
	StepReview            Step = "review"
	StepComplete          Step = "complete"
)

// BaseSourceID addresses the session's base file in a SelectionRef.
const BaseSourceID = "base"

type SelectionRef struct {
	SourceID   string `json:"source_id"`
	SourceSlot int    `json:"source_slot"`
}

type SourceFile struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Config  Configuration `json:"config"`
	AddedAt int64         `json:"added_at_unix_ms"`
}

type Session struct {
	ID         string                  `json:"id"`
	Step       Step                    `json:"step"`
	BaseName   string                  `json:"base_name"`
	Base       Configuration           `json:"base"`
	Sources    []SourceFile            `json:"sources"`
	Selections SlotMap[[]SelectionRef] `json:"selections"`
	OutputName string                  `json:"output_name,omitempty"`
	OutputPath string                  `json:"output_path,omitempty"`
	CreatedAt  int64                   `json:"created_at_unix_ms"`
	UpdatedAt  int64                   `json:"updated_at_unix_ms"`
}

func (s Session) Source(id string) (SourceFile, bool) {
	if id == BaseSourceID {
		return SourceFile{ID: BaseSourceID, Name: s.BaseName, Config: s.Base}, true
	}
	for _, src := range s.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return SourceFile{}, false
}

type WorkflowState struct {
	Sessions          map[string]Session `json:"sessions"`
	LastUpdatedUnixMS int64              `json:"last_updated_unix_ms"`
	CreatedAt         time.Time          `json:"created_at"`
}
