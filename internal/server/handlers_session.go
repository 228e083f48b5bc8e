package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultcode-ai/vaultcode/internal/session"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// listSessions handles GET /session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.controller.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Ensure we return an empty array [] instead of null
	sessions := []*types.Session{}
	for _, id := range ids {
		sess, err := s.controller.Get(r.Context(), id)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	writeJSON(w, http.StatusOK, sessions)
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controller.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// getSession handles GET /session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.controller.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// deleteSession handles DELETE /session/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.controller.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// SubmitMessageRequest represents the request body for submitting a message.
type SubmitMessageRequest struct {
	Content string `json:"content"`
}

// submitMessage handles POST /session/{sessionID}/message
//
// Submission never blocks on the turn: a busy session queues the message
// and the caller watches progress over the event stream.
func (s *Server) submitMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	if err := s.controller.Submit(r.Context(), sessionID, req.Content); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// abortSession handles POST /session/{sessionID}/abort
func (s *Server) abortSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.controller.Abort(sessionID)

	writeSuccess(w)
}

// getSessionStatus handles GET /session/{sessionID}/status
func (s *Server) getSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	status, err := s.controller.Status(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionID": sessionID,
		"status":    status,
	})
}

// getToolCalls handles GET /session/{sessionID}/toolcalls
func (s *Server) getToolCalls(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	calls, err := s.controller.ToolCalls(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}
	if calls == nil {
		calls = []types.ToolCall{}
	}

	writeJSON(w, http.StatusOK, calls)
}

// getQueue handles GET /session/{sessionID}/queue
func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	pending, err := s.controller.Pending(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}
	if pending == nil {
		pending = []types.QueuedMessage{}
	}

	writeJSON(w, http.StatusOK, pending)
}

// removeQueued handles DELETE /session/{sessionID}/queue/{messageID}
func (s *Server) removeQueued(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	removed, err := s.controller.RemoveQueued(r.Context(), sessionID, messageID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Queued message not found")
		return
	}

	writeSuccess(w)
}

// RespondGuardRequest represents the request body for answering a guard.
type RespondGuardRequest struct {
	Proceed bool `json:"proceed"`
}

// respondGuard handles POST /session/{sessionID}/guard
func (s *Server) respondGuard(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req RespondGuardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if err := s.controller.RespondGuard(r.Context(), sessionID, req.Proceed); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	writeSuccess(w)
}
