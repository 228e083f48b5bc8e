package permission

import "sync"

// Approvals is the session-scoped approved-tool set. It lives for the
// session only and is distinct from the persisted always-allowed list,
// which the settings subsystem owns.
type Approvals struct {
	mu    sync.RWMutex
	tools map[string]bool
}

// NewApprovals creates an empty approval set.
func NewApprovals() *Approvals {
	return &Approvals{tools: make(map[string]bool)}
}

// Has reports whether a tool has been approved for this session.
// Safe on a nil receiver so Decide can take an absent set.
func (a *Approvals) Has(toolName string) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tools[toolName]
}

// Add approves a tool for the remainder of the session.
func (a *Approvals) Add(toolName string) {
	a.mu.Lock()
	a.tools[toolName] = true
	a.mu.Unlock()
}

// Clear drops all session approvals. Called on session end.
func (a *Approvals) Clear() {
	a.mu.Lock()
	a.tools = make(map[string]bool)
	a.mu.Unlock()
}

// List returns the approved tool names, unordered.
func (a *Approvals) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.tools))
	for name := range a.tools {
		out = append(out, name)
	}
	return out
}
