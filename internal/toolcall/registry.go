// Package toolcall tracks the lifecycle of tool invocations emitted within
// a turn, including nested sub-agent calls.
package toolcall

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// ErrTerminal is returned when an update would mutate a call that has
// already reached a terminal state.
var ErrTerminal = errors.New("tool call is terminal")

// ErrNotFound is returned when no call matches the given id.
var ErrNotFound = errors.New("tool call not found")

// Registry tracks tool calls in insertion order. Calls are never deleted,
// only marked terminal. All methods are safe for concurrent use; Get and
// All return copies so callers can't bypass the terminal invariant.
type Registry struct {
	mu    sync.RWMutex
	calls map[string]*types.ToolCall
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]*types.ToolCall),
	}
}

// Start registers a new tool call. A missing id is generated, a missing
// status defaults to pending, and a missing start time is stamped now.
// Returns the id under which the call is tracked. An id that is already
// tracked keeps its stored call untouched, so a re-emitted id from a
// retried attempt cannot reset a terminal call.
func (r *Registry) Start(call types.ToolCall) string {
	if call.ID == "" {
		call.ID = ulid.Make().String()
	}
	if call.Status == "" {
		call.Status = types.ToolPending
	}
	if call.Time.Start == 0 {
		call.Time.Start = time.Now().UnixMilli()
	}
	if call.IsSubagent && call.SubagentStatus == "" {
		call.SubagentStatus = types.SubagentStarting
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.ID]; exists {
		return call.ID
	}
	r.order = append(r.order, call.ID)
	stored := call
	r.calls[call.ID] = &stored
	return call.ID
}

// Update is a partial mutation of a tracked call. Nil fields are left
// untouched.
type Update struct {
	Status           *types.ToolCallStatus
	Output           *string
	Error            *string
	EndTime          *int64
	SubagentStatus   *types.SubagentStatus
	SubagentProgress *types.SubagentProgress
}

// Apply applies a partial update to the call with the given id. Once a
// call is terminal the only accepted mutation is recording an end time it
// does not yet have; anything else fails with ErrTerminal.
func (r *Registry) Apply(id string, upd Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if call.Terminal() {
		if upd.EndTime != nil && call.Time.End == nil &&
			upd.Status == nil && upd.Output == nil && upd.Error == nil &&
			upd.SubagentStatus == nil && upd.SubagentProgress == nil {
			call.Time.End = upd.EndTime
			return nil
		}
		return fmt.Errorf("%w: %s", ErrTerminal, id)
	}

	if upd.Status != nil {
		call.Status = *upd.Status
	}
	if upd.Output != nil {
		call.Output = upd.Output
	}
	if upd.Error != nil {
		call.Error = upd.Error
	}
	if upd.EndTime != nil {
		call.Time.End = upd.EndTime
	}
	if upd.SubagentStatus != nil {
		call.SubagentStatus = *upd.SubagentStatus
	}
	if upd.SubagentProgress != nil {
		call.SubagentProgress = upd.SubagentProgress
	}
	return nil
}

// Get returns a copy of the call with the given id.
func (r *Registry) Get(id string) (types.ToolCall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	call, ok := r.calls[id]
	if !ok {
		return types.ToolCall{}, false
	}
	return *call, true
}

// All returns copies of every tracked call in insertion order.
func (r *Registry) All() []types.ToolCall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ToolCall, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.calls[id])
	}
	return out
}

// ForTurn returns copies of the calls belonging to a turn, in insertion
// order.
func (r *Registry) ForTurn(turnID string) []types.ToolCall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.ToolCall
	for _, id := range r.order {
		if call := r.calls[id]; call.TurnID == turnID {
			out = append(out, *call)
		}
	}
	return out
}

// Len returns the number of tracked calls.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
