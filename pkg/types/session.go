// Package types provides the core data types for the VaultCode session core.
package types

// SessionStatus represents the controller state for a session.
type SessionStatus string

const (
	StatusIdle               SessionStatus = "idle"
	StatusDispatching        SessionStatus = "dispatching"
	StatusStreaming          SessionStatus = "streaming"
	StatusAwaitingPermission SessionStatus = "awaiting-permission"
)

// Session represents one active conversation with the agent.
// It is owned exclusively by the session controller; all mutation happens
// through controller transitions.
type Session struct {
	ID        string      `json:"id"`
	Title     string      `json:"title,omitempty"`
	Turns     []*Turn     `json:"turns"`
	Spend     float64     `json:"spend"`
	TurnCount int         `json:"turnCount"`
	Terminal  bool        `json:"terminal"`
	Time      SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// CurrentTurn returns the most recent turn if it is not yet terminal.
func (s *Session) CurrentTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	last := s.Turns[len(s.Turns)-1]
	if last.Status.Terminal() {
		return nil
	}
	return last
}

// TurnStatus represents the lifecycle state of a turn.
type TurnStatus string

const (
	TurnRunning            TurnStatus = "running"
	TurnAwaitingPermission TurnStatus = "awaiting-permission"
	TurnCompleted          TurnStatus = "completed"
	TurnAborted            TurnStatus = "aborted"
	TurnErrored            TurnStatus = "errored"
)

// Terminal reports whether the status is a terminal turn state.
func (s TurnStatus) Terminal() bool {
	switch s {
	case TurnCompleted, TurnAborted, TurnErrored:
		return true
	}
	return false
}

// Turn represents one request/response cycle with the agent.
type Turn struct {
	ID        string     `json:"id"`
	Input     string     `json:"input"`
	ToolCalls []string   `json:"toolCalls"` // tool call IDs in emission order
	Status    TurnStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Time      TurnTime   `json:"time"`
}

// TurnTime contains timestamps for a turn.
type TurnTime struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end,omitempty"`
}
