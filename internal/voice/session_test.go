package voice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	sess := NewSession("user_1", "asst_1")
	require.Equal(t, PhaseConnecting, sess.Phase)

	require.NoError(t, sess.Apply(Event{Type: EventCallStart}))
	assert.Equal(t, PhaseActive, sess.Phase)
	assert.False(t, sess.StartedAt.IsZero())

	require.NoError(t, sess.Apply(Event{Type: EventSpeechStart, Role: "assistant"}))
	assert.True(t, sess.Speaking)

	require.NoError(t, sess.Apply(Event{Type: EventSpeechEnd, Role: "assistant"}))
	assert.False(t, sess.Speaking)

	require.NoError(t, sess.Apply(Event{Type: EventMessage, Role: "user", Text: "hello", Final: true}))
	assert.Equal(t, PhaseActive, sess.Phase)

	require.NoError(t, sess.Apply(Event{Type: EventCallEnd}))
	assert.Equal(t, PhaseEnded, sess.Phase)
	assert.False(t, sess.EndedAt.IsZero())
	assert.True(t, sess.Done())
}

func TestSessionErrorWhileConnectingReturnsToIdle(t *testing.T) {
	sess := NewSession("user_1", "asst_1")
	require.NoError(t, sess.Apply(Event{Type: EventError, Error: "sdk failed to connect"}))
	assert.Equal(t, PhaseIdle, sess.Phase)
	assert.True(t, sess.Done())
}

func TestSessionErrorMidCallEndsSession(t *testing.T) {
	sess := NewSession("user_1", "asst_1")
	require.NoError(t, sess.Apply(Event{Type: EventCallStart}))
	require.NoError(t, sess.Apply(Event{Type: EventSpeechStart}))

	require.NoError(t, sess.Apply(Event{Type: EventError, Error: "audio dropped"}))
	assert.Equal(t, PhaseEnded, sess.Phase)
	assert.False(t, sess.Speaking)
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	cases := []struct {
		name  string
		setup []Event
		evt   Event
	}{
		{"speech before call-start", nil, Event{Type: EventSpeechStart}},
		{"message before call-start", nil, Event{Type: EventMessage, Text: "hi", Final: true}},
		{"double call-start", []Event{{Type: EventCallStart}}, Event{Type: EventCallStart}},
		{"call-end after ended", []Event{{Type: EventCallStart}, {Type: EventCallEnd}}, Event{Type: EventCallEnd}},
		{"message after ended", []Event{{Type: EventCallStart}, {Type: EventCallEnd}}, Event{Type: EventMessage, Text: "hi", Final: true}},
		{"unknown event", nil, Event{Type: "mystery"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := NewSession("user_1", "asst_1")
			for _, evt := range tc.setup {
				require.NoError(t, sess.Apply(evt))
			}
			before := sess.Phase
			err := sess.Apply(tc.evt)
			assert.True(t, errors.Is(err, ErrUnexpectedEvent), "err = %v", err)
			assert.Equal(t, before, sess.Phase, "phase must not change on a dropped event")
		})
	}
}
