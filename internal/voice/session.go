package voice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is the consultation lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// ErrUnexpectedEvent is returned when an event is not legal in the
// session's current phase. The event is dropped; the session state is
// unchanged.
var ErrUnexpectedEvent = errors.New("voice: event not valid in current phase")

// Session is one voice consultation. The phase machine is explicit:
//
//	connecting --call-start--> active --call-end--> ended
//	connecting --error-------> idle
//	active -----error--------> ended
//
// speech-start/speech-end toggle the speaking indicator and message
// events carry transcript fragments; neither changes the phase.
type Session struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"external_id"`
	AssistantID    string    `json:"assistant_id"`
	Phase          Phase     `json:"phase"`
	Speaking       bool      `json:"speaking"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession creates a session in the connecting phase for the given
// caller.
func NewSession(externalID, assistantID string) *Session {
	return &Session{
		ID:             uuid.NewString(),
		ExternalID:     externalID,
		AssistantID:    assistantID,
		Phase:          PhaseConnecting,
		LastActivityAt: time.Now().UTC(),
	}
}

// Apply advances the phase machine with one widget event. It returns
// ErrUnexpectedEvent for events that are illegal in the current phase.
func (s *Session) Apply(evt Event) error {
	now := time.Now().UTC()

	switch evt.Type {
	case EventCallStart:
		if s.Phase != PhaseConnecting {
			return fmt.Errorf("%w: call-start in %s", ErrUnexpectedEvent, s.Phase)
		}
		s.Phase = PhaseActive
		s.StartedAt = now

	case EventCallEnd:
		if s.Phase != PhaseActive && s.Phase != PhaseConnecting {
			return fmt.Errorf("%w: call-end in %s", ErrUnexpectedEvent, s.Phase)
		}
		s.Phase = PhaseEnded
		s.Speaking = false
		s.EndedAt = now

	case EventSpeechStart:
		if s.Phase != PhaseActive {
			return fmt.Errorf("%w: speech-start in %s", ErrUnexpectedEvent, s.Phase)
		}
		s.Speaking = true

	case EventSpeechEnd:
		if s.Phase != PhaseActive {
			return fmt.Errorf("%w: speech-end in %s", ErrUnexpectedEvent, s.Phase)
		}
		s.Speaking = false

	case EventMessage:
		if s.Phase != PhaseActive {
			return fmt.Errorf("%w: message in %s", ErrUnexpectedEvent, s.Phase)
		}

	case EventError:
		// A failure before the call is established returns the widget
		// to idle; a failure mid-call terminates the session.
		switch s.Phase {
		case PhaseConnecting:
			s.Phase = PhaseIdle
		case PhaseActive:
			s.Phase = PhaseEnded
			s.Speaking = false
			s.EndedAt = now
		default:
			return fmt.Errorf("%w: error in %s", ErrUnexpectedEvent, s.Phase)
		}

	default:
		return fmt.Errorf("%w: unknown event %q", ErrUnexpectedEvent, evt.Type)
	}

	s.LastActivityAt = now
	return nil
}

// Done reports whether the session reached a terminal phase.
func (s *Session) Done() bool {
	return s.Phase == PhaseEnded || s.Phase == PhaseIdle
}
