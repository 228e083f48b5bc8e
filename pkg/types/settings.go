package types

// Settings is the read-only configuration snapshot consumed per permission
// decision and per dispatch guard. The settings subsystem owns persistence;
// the core only ever reads a copy.
type Settings struct {
	AutoApproveVaultWrites bool     `json:"autoApproveVaultWrites"`
	RequireBashApproval    bool     `json:"requireBashApproval"`
	AlwaysAllowedTools     []string `json:"alwaysAllowedTools"`
	MaxBudgetPerSession    float64  `json:"maxBudgetPerSession"`
	MaxTurns               int      `json:"maxTurns"`
}

// DefaultSettings returns the conservative defaults: writes and bash
// require approval, no always-allowed tools, modest limits.
func DefaultSettings() Settings {
	return Settings{
		AutoApproveVaultWrites: false,
		RequireBashApproval:    true,
		AlwaysAllowedTools:     []string{},
		MaxBudgetPerSession:    5.0,
		MaxTurns:               50,
	}
}

// AlwaysAllowed reports whether a tool name is in the persisted
// always-allowed list.
func (s Settings) AlwaysAllowed(toolName string) bool {
	for _, name := range s.AlwaysAllowedTools {
		if name == toolName {
			return true
		}
	}
	return false
}
