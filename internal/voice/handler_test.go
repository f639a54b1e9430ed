package voice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

func TestConfigHardFailsWithoutAssistantID(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store, nil, "", nil, logging.New("error"))

	rec := httptest.NewRecorder()
	h.Config(rec, httptest.NewRequest(http.MethodGet, "/voice/config", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestConfigReturnsAssistantID(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store, nil, "asst_1", nil, logging.New("error"))

	rec := httptest.NewRecorder()
	h.Config(rec, httptest.NewRequest(http.MethodGet, "/voice/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "asst_1", body["assistant_id"])
}

// dialSession opens a websocket against the handler with an
// authenticated request context.
func dialSession(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleSession(w, r.WithContext(identity.WithUserID(r.Context(), "user_1")))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receiveSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap Snapshot
	require.NoError(t, websocket.JSON.Receive(conn, &snap))
	return snap
}

func TestSessionStreamsStateAndPersistsFinalTranscript(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store, nil, "asst_1", nil, logging.New("error"))
	conn := dialSession(t, h)

	snap := receiveSnapshot(t, conn)
	require.Equal(t, "state", snap.Type)
	require.Equal(t, PhaseConnecting, snap.Phase)
	sessionID := snap.SessionID
	require.NotEmpty(t, sessionID)

	require.NoError(t, websocket.JSON.Send(conn, Event{Type: EventCallStart}))
	snap = receiveSnapshot(t, conn)
	assert.Equal(t, PhaseActive, snap.Phase)

	// Partial fragment: never persisted.
	require.NoError(t, websocket.JSON.Send(conn, Event{Type: EventMessage, Role: "user", Text: "I nee", Final: false}))
	receiveSnapshot(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, Event{Type: EventMessage, Role: "user", Text: "I need a cleaning", Final: true}))
	receiveSnapshot(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, Event{Type: EventCallEnd}))
	snap = receiveSnapshot(t, conn)
	assert.Equal(t, PhaseEnded, snap.Phase)

	entries, err := store.GetTranscript(t.Context(), sessionID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "I need a cleaning", entries[0].Text)

	sess, err := store.GetSession(t.Context(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, PhaseEnded, sess.Phase)
}

func TestSessionDropsOutOfOrderEvent(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store, nil, "asst_1", nil, logging.New("error"))
	conn := dialSession(t, h)

	receiveSnapshot(t, conn)

	// speech-start before call-start is illegal; the session stays
	// connecting and the widget gets an error snapshot.
	require.NoError(t, websocket.JSON.Send(conn, Event{Type: EventSpeechStart}))
	snap := receiveSnapshot(t, conn)
	assert.Equal(t, "error", snap.Type)
	assert.Equal(t, PhaseConnecting, snap.Phase)
}

func TestSessionRefusedWithoutAssistantID(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store, nil, "", nil, logging.New("error"))
	conn := dialSession(t, h)

	snap := receiveSnapshot(t, conn)
	assert.Equal(t, "error", snap.Type)
	assert.Contains(t, snap.Error, "not configured")
}
