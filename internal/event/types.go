package event

import "github.com/vaultcode-ai/vaultcode/pkg/types"

// SessionUpdatedData is the data for session.updated events. The full
// session snapshot is included so UI collaborators never need to reach
// into controller state.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// TurnStartedData is the data for turn.started events.
type TurnStartedData struct {
	SessionID string      `json:"sessionID"`
	Turn      *types.Turn `json:"turn"`
}

// TurnCompletedData is the data for turn.completed events.
type TurnCompletedData struct {
	SessionID string      `json:"sessionID"`
	Turn      *types.Turn `json:"turn"`
}

// TurnErroredData is the data for turn.errored events. Message carries the
// original error text verbatim; retried transient failures are not
// published until retries are exhausted.
type TurnErroredData struct {
	SessionID string `json:"sessionID"`
	TurnID    string `json:"turnID"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// TextDeltaData is the data for turn.delta events (streamed agent text).
type TextDeltaData struct {
	SessionID string `json:"sessionID"`
	TurnID    string `json:"turnID"`
	Delta     string `json:"delta"`
}

// ToolCallUpdatedData is the data for toolcall.updated events.
type ToolCallUpdatedData struct {
	SessionID string         `json:"sessionID"`
	Call      types.ToolCall `json:"call"`
}

// PermissionRequiredData is the data for permission.required events,
// published when a denied tool call suspends the turn.
type PermissionRequiredData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	ToolName  string `json:"toolName"`
	CallID    string `json:"callID"`
	Reason    string `json:"reason"`
}

// PermissionResolvedData is the data for permission.resolved events.
type PermissionResolvedData struct {
	ID      string `json:"id"`
	Granted bool   `json:"granted"`
	Scope   string `json:"scope,omitempty"` // "once" | "session" | "always"
}

// QueueUpdatedData is the data for queue.updated events.
type QueueUpdatedData struct {
	SessionID string                `json:"sessionID"`
	Pending   []types.QueuedMessage `json:"pending"`
}

// QuestionAskedData is the data for question.asked events, published when
// the agent wants structured input from the human.
type QuestionAskedData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	CallID    string `json:"callID"`
	Questions any    `json:"questions"`
}

// QuestionAnsweredData is the data for question.answered events.
type QuestionAnsweredData struct {
	ID      string            `json:"id"`
	Answers map[string]string `json:"answers"`
}

// WorkspaceNoticeData is the data for workspace.notice events. The UI
// collaborator renders the notice; the core only relays it.
type WorkspaceNoticeData struct {
	Message    string `json:"message"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// WorkspaceOpenFileData is the data for workspace.open-file events.
type WorkspaceOpenFileData struct {
	Path   string `json:"path"`
	Reveal bool   `json:"reveal,omitempty"`
}

// WorkspaceCommandData is the data for workspace.command events.
type WorkspaceCommandData struct {
	CommandID string `json:"commandId"`
}

// GuardTriggeredData is the data for guard.triggered events, published
// when a dispatch is blocked on the budget or turn-count limit.
type GuardTriggeredData struct {
	SessionID string  `json:"sessionID"`
	Kind      string  `json:"kind"` // "budget" | "turns"
	Spend     float64 `json:"spend,omitempty"`
	TurnCount int     `json:"turnCount,omitempty"`
	Limit     float64 `json:"limit"`
}
