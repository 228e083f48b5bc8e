// Package transport defines the opaque streaming transport the session
// controller consumes, and an Anthropic-backed implementation of it. The
// controller only ever sees the event contract here; the wire protocol
// underneath is the transport's business.
package transport

import (
	"context"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// EventType identifies a stream event.
type EventType string

const (
	EventText          EventType = "text"
	EventToolCallStart EventType = "tool-call-start"
	EventToolCallEnd   EventType = "tool-call-end"
	EventToolProgress  EventType = "tool-progress"
	EventTurnComplete  EventType = "turn-complete"
	EventError         EventType = "error"
)

// Event is one element of the ordered stream a turn produces. Exactly one
// payload field is set, matching Type.
type Event struct {
	Type     EventType
	Text     string
	Call     *ToolCallStart
	End      *ToolCallEnd
	Progress *ToolProgress
	Complete *TurnComplete
	Err      error
}

// ToolCallStart announces a tool invocation the agent wants to make.
type ToolCallStart struct {
	CallID     string
	Name       string
	Input      map[string]any
	IsSubagent bool
}

// ToolCallEnd reports the outcome of an executed (or refused) tool call.
type ToolCallEnd struct {
	CallID string
	Output *string
	Error  *string
}

// ToolProgress carries a sub-agent status update for a running Task call.
type ToolProgress struct {
	CallID  string
	Status  types.SubagentStatus
	Message string
}

// TurnComplete signals normal end of turn.
type TurnComplete struct {
	CostUSD float64
}

// TurnRequest is the input to one turn.
type TurnRequest struct {
	SessionID string
	TurnID    string
	Content   string
}

// Stream is the event source for a single turn. Recv blocks until the next
// event; after an EventTurnComplete or EventError the stream is drained
// and Recv returns io.EOF. Respond answers a pending tool call: approved
// calls execute, denied calls feed the refusal message back to the agent
// as an error result.
type Stream interface {
	Recv() (Event, error)
	Respond(callID string, approved bool, message string) error
	Close() error
}

// Transport starts turns. Implementations must be safe for sequential
// reuse; the controller never runs two turns of a session concurrently.
type Transport interface {
	Start(ctx context.Context, req TurnRequest) (Stream, error)
}
