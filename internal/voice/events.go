package voice

import "time"

// EventType is an SDK event streamed up from the voice widget.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

// Event is what the widget sends over the websocket.
type Event struct {
	Type  EventType `json:"type"`
	Role  string    `json:"role,omitempty"` // "user" or "assistant"
	Text  string    `json:"text,omitempty"`
	Final bool      `json:"final,omitempty"`
	Error string    `json:"error,omitempty"`
}

// TranscriptEntry is a finalized utterance. Partial fragments are never
// persisted.
type TranscriptEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the state message pushed down to the widget after each
// applied event.
type Snapshot struct {
	Type      string `json:"type"` // "state" or "error"
	SessionID string `json:"session_id,omitempty"`
	Phase     Phase  `json:"phase,omitempty"`
	Speaking  bool   `json:"speaking"`
	Error     string `json:"error,omitempty"`
}
