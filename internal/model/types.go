package model

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

const (
	EventSessionCreated  = "session.created"
	EventSourceAdded     = "source.added"
	EventSourceRemoved   = "source.removed"
	EventSlotConcat      = "slot.concatenated"
	EventStepChanged     = "step.changed"
	EventMergeCompleted  = "merge.completed"
	EventSessionReset    = "session.reset"
	EventClientConnected = "ws.client_connected"
)

type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
	CreatedAt int64       `json:"created_at_unix_ms"`
}
