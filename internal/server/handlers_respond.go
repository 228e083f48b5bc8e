package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/permission"
)

// RespondPermissionRequest represents the request body for answering a
// suspended tool call.
type RespondPermissionRequest struct {
	Action string `json:"action"`
}

// respondPermission handles POST /permission/{requestID}
func (s *Server) respondPermission(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	var req RespondPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	action := permission.Action(req.Action)
	switch action {
	case permission.ApproveOnce, permission.ApproveSession, permission.ApproveAlways, permission.ActionDeny:
	default:
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown action: "+req.Action)
		return
	}

	if !s.responder.Respond(requestID, action) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Permission request not found")
		return
	}

	writeSuccess(w)
}

// listPendingPermissions handles GET /permission
func (s *Server) listPendingPermissions(w http.ResponseWriter, r *http.Request) {
	pending := s.responder.Pending()
	if pending == nil {
		pending = []string{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// RespondQuestionRequest represents the request body for answering an
// agent-initiated question.
type RespondQuestionRequest struct {
	Answers map[string]string `json:"answers"`
}

// respondQuestion handles POST /question/{requestID}
func (s *Server) respondQuestion(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	var req RespondQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if !s.asker.Respond(requestID, req.Answers) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Question not found")
		return
	}

	writeSuccess(w)
}

// listPendingQuestions handles GET /question
func (s *Server) listPendingQuestions(w http.ResponseWriter, r *http.Request) {
	pending := s.asker.Pending()
	if pending == nil {
		pending = []askuser.Request{}
	}
	writeJSON(w, http.StatusOK, pending)
}
