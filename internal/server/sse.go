package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vaultcode-ai/vaultcode/internal/event"
	"github.com/vaultcode-ai/vaultcode/internal/logging"
)

// WireEvent is the shape every SSE payload takes on the wire.
// The plugin expects: {"type": "...", "properties": {...}}
type WireEvent struct {
	Type       event.EventType `json:"type"`
	Properties any             `json:"properties"`
}

const (
	// SSEHeartbeatInterval is the interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	if err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back to
	// the plain Flusher when it cannot.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// events handles GET /event. Without a sessionID query parameter it
// forwards every bus event; with one it forwards only events that belong
// to that session.
func (srv *Server) events(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Flush headers before the first event so the client sees the stream
	// open immediately.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	connected := WireEvent{
		Type:       "server.connected",
		Properties: map[string]any{},
	}
	if err := sse.writeEvent("message", connected); err != nil {
		return
	}

	// Small buffer keeps latency low; a slow client drops events rather
	// than backing up the bus.
	events := make(chan event.Event, 10)

	unsub := event.SubscribeAll(func(e event.Event) {
		if sessionID != "" && !eventBelongsToSession(e, sessionID) {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Str("sessionID", sessionID).
				Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			data := WireEvent{
				Type:       e.Type,
				Properties: e.Data,
			}
			if err := sse.writeEvent("message", data); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// eventBelongsToSession checks if an event belongs to a session.
func eventBelongsToSession(e event.Event, sessionID string) bool {
	switch data := e.Data.(type) {
	case event.SessionUpdatedData:
		return data.Info != nil && data.Info.ID == sessionID
	case event.TurnStartedData:
		return data.SessionID == sessionID
	case event.TurnCompletedData:
		return data.SessionID == sessionID
	case event.TurnErroredData:
		return data.SessionID == sessionID
	case event.TextDeltaData:
		return data.SessionID == sessionID
	case event.ToolCallUpdatedData:
		return data.SessionID == sessionID
	case event.PermissionRequiredData:
		return data.SessionID == sessionID
	case event.PermissionResolvedData:
		// Resolution carries no session id; every watcher sees it.
		return true
	case event.QueueUpdatedData:
		return data.SessionID == sessionID
	case event.GuardTriggeredData:
		return data.SessionID == sessionID
	case event.QuestionAskedData:
		return data.SessionID == sessionID
	case event.QuestionAnsweredData:
		return true
	case event.WorkspaceNoticeData, event.WorkspaceOpenFileData, event.WorkspaceCommandData:
		// Workspace UI events carry no session id; every watcher sees them.
		return true
	}
	return false
}
