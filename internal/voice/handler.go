package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/brightsmile/dental-ai-platform/internal/archive"
	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/internal/observability/metrics"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Handler serves the voice widget's config and event stream.
type Handler struct {
	store       *Store
	archive     *archive.Store
	assistantID string
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewHandler creates a voice handler. archiveStore and m may be nil.
func NewHandler(store *Store, archiveStore *archive.Store, assistantID string, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:       store,
		archive:     archiveStore,
		assistantID: assistantID,
		metrics:     m,
		logger:      logger,
	}
}

// Config handles GET /voice/config. A missing assistant ID is a hard
// failure, never a silent fallback: the widget must not start a call it
// cannot route.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.assistantID == "" {
		h.logger.Error("voice assistant id not configured")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "voice assistant not configured"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"assistant_id": h.assistantID})
}

// HandleSession upgrades to WebSocket and runs the event loop for one
// voice consultation.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()

	externalID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		_ = websocket.JSON.Send(conn, Snapshot{Type: "error", Error: "not authenticated"})
		return
	}
	if h.assistantID == "" {
		h.logger.Error("voice session refused: assistant id not configured", "external_id", externalID)
		_ = websocket.JSON.Send(conn, Snapshot{Type: "error", Error: "voice assistant not configured"})
		return
	}

	sess := NewSession(externalID, h.assistantID)
	if err := h.store.SaveSession(r.Context(), sess); err != nil {
		h.logger.Error("failed to persist voice session", "error", err, "session_id", sess.ID)
		_ = websocket.JSON.Send(conn, Snapshot{Type: "error", Error: "session unavailable"})
		return
	}

	h.logger.Info("voice session opened", "session_id", sess.ID, "external_id", externalID)
	h.sendSnapshot(conn, sess)

	for {
		var evt Event
		if err := websocket.JSON.Receive(conn, &evt); err != nil {
			h.logger.Debug("voice connection closed", "session_id", sess.ID, "error", err)
			return
		}

		h.metrics.ObserveVoiceEvent(string(evt.Type))

		if err := sess.Apply(evt); err != nil {
			h.logger.Warn("dropping voice event", "session_id", sess.ID, "event", evt.Type, "error", err)
			_ = websocket.JSON.Send(conn, Snapshot{
				Type:      "error",
				SessionID: sess.ID,
				Phase:     sess.Phase,
				Speaking:  sess.Speaking,
				Error:     "event not valid in current phase",
			})
			continue
		}

		if evt.Type == EventMessage && evt.Final && strings.TrimSpace(evt.Text) != "" {
			entry := TranscriptEntry{
				Role:      evt.Role,
				Text:      evt.Text,
				Timestamp: time.Now().UTC(),
			}
			if err := h.store.AppendTranscript(r.Context(), sess.ID, entry); err != nil {
				h.logger.Error("failed to append transcript", "error", err, "session_id", sess.ID)
			}
		}

		if err := h.store.SaveSession(r.Context(), sess); err != nil {
			h.logger.Error("failed to persist voice session", "error", err, "session_id", sess.ID)
		}
		h.sendSnapshot(conn, sess)

		if sess.Done() {
			if sess.Phase == PhaseEnded {
				h.archiveSession(r.Context(), sess)
			}
			h.logger.Info("voice session closed", "session_id", sess.ID, "phase", sess.Phase)
			return
		}
	}
}

func (h *Handler) sendSnapshot(conn *websocket.Conn, sess *Session) {
	_ = websocket.JSON.Send(conn, Snapshot{
		Type:      "state",
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Speaking:  sess.Speaking,
	})
}

// archiveSession ships the final transcript to S3. Best-effort: the
// session already ended and the widget is gone.
func (h *Handler) archiveSession(ctx context.Context, sess *Session) {
	if !h.archive.Enabled() {
		return
	}
	entries, err := h.store.GetTranscript(ctx, sess.ID)
	if err != nil {
		h.logger.Error("failed to load transcript for archive", "error", err, "session_id", sess.ID)
		return
	}

	record := &archive.TranscriptRecord{
		SessionID:  sess.ID,
		ExternalID: sess.ExternalID,
		StartedAt:  sess.StartedAt,
		EndedAt:    sess.EndedAt,
		Entries:    make([]archive.TranscriptEntry, 0, len(entries)),
	}
	for _, e := range entries {
		record.Entries = append(record.Entries, archive.TranscriptEntry(e))
	}
	if err := h.archive.ArchiveTranscript(ctx, record); err != nil {
		h.logger.Error("failed to archive transcript", "error", err, "session_id", sess.ID)
	}
}
