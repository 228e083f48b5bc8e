package server

import (
	"encoding/json"
	"net/http"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// UpdateSettingsRequest represents a partial settings update. Only fields
// present in the body are applied.
type UpdateSettingsRequest struct {
	AutoApproveVaultWrites *bool     `json:"autoApproveVaultWrites,omitempty"`
	RequireBashApproval    *bool     `json:"requireBashApproval,omitempty"`
	AlwaysAllowedTools     *[]string `json:"alwaysAllowedTools,omitempty"`
	MaxBudgetPerSession    *float64  `json:"maxBudgetPerSession,omitempty"`
	MaxTurns               *int      `json:"maxTurns,omitempty"`
}

// getSettings handles GET /settings
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

// updateSettings handles PATCH /settings
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	err := s.settings.Update(r.Context(), func(st *types.Settings) {
		if req.AutoApproveVaultWrites != nil {
			st.AutoApproveVaultWrites = *req.AutoApproveVaultWrites
		}
		if req.RequireBashApproval != nil {
			st.RequireBashApproval = *req.RequireBashApproval
		}
		if req.AlwaysAllowedTools != nil {
			st.AlwaysAllowedTools = *req.AlwaysAllowedTools
		}
		if req.MaxBudgetPerSession != nil {
			st.MaxBudgetPerSession = *req.MaxBudgetPerSession
		}
		if req.MaxTurns != nil {
			st.MaxTurns = *req.MaxTurns
		}
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.settings.Current())
}
