package model

const (
	MinFrames = 1
	MaxFrames = 300
)

// Reference LED panel: 5 rows of 40 elements.
const (
	DefaultRows = 5
	DefaultCols = 40
	OffColor    = "#000000"
)

type Geometry struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func DefaultGeometry() Geometry {
	return Geometry{Rows: DefaultRows, Cols: DefaultCols}
}

func (g Geometry) Elements() int {
	return g.Rows * g.Cols
}

// SlotSelection picks one source page to contribute frames to a target slot.
// Its position in the selection list is its order in the output.
type SlotSelection struct {
	Source     *Configuration
	SourceSlot int
}

type ConcatenationResult struct {
	Config      Configuration `json:"config"`
	TotalFrames int           `json:"total_frames"`
	IsValid     bool          `json:"is_valid"`
	Warning     string        `json:"warning,omitempty"`
}

// Page returns the concatenated page, if the base selection resolved.
func (r ConcatenationResult) Page() (Page, bool) {
	if len(r.Config.Pages) == 0 {
		return Page{}, false
	}
	return r.Config.Pages[0], true
}

type MergeAction string

const (
	ActionKeep    MergeAction = "keep"
	ActionReplace MergeAction = "replace"
	ActionCombine MergeAction = "combine"
)

// MergeMapping is a single-source instruction for one slot, the shape used by
// plan files and the stateless merge endpoint.
type MergeMapping struct {
	Slot       int         `json:"slot" yaml:"slot"`
	Action     MergeAction `json:"action" yaml:"action"`
	SourceFile string      `json:"sourceFile,omitempty" yaml:"source_file,omitempty"`
	TargetSlot *int        `json:"targetSlot,omitempty" yaml:"target_slot,omitempty"`
}

func (m MergeMapping) IsValid() bool {
	switch m.Action {
	case ActionKeep:
		return true
	case ActionReplace, ActionCombine:
		return m.SourceFile != ""
	default:
		return false
	}
}
