package permission

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/vaultcode-ai/vaultcode/internal/event"
)

// Action is a human operator's answer to a denied tool call.
type Action string

const (
	ApproveOnce    Action = "approve-once"
	ApproveSession Action = "approve-session"
	ApproveAlways  Action = "approve-always"
	ActionDeny     Action = "deny"
)

// Request describes a denied tool call awaiting a human decision.
type Request struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	ToolName  string `json:"toolName"`
	CallID    string `json:"callID"`
	Reason    Reason `json:"reason"`
}

// DeniedError is returned when the operator denies a tool call.
type DeniedError struct {
	SessionID string
	ToolName  string
	CallID    string
	Message   string
}

func (e *DeniedError) Error() string {
	return e.Message
}

// IsDeniedError reports whether err is a permission denial.
func IsDeniedError(err error) bool {
	_, ok := err.(*DeniedError)
	return ok
}

// Responder bridges denied tool calls to the human-decision collaborator.
// Await publishes a permission.required event and parks until Respond
// delivers the operator's decision or the context is canceled. Waits are
// indefinite; the caller bounds them by canceling.
type Responder struct {
	mu      sync.Mutex
	pending map[string]chan Action
}

// NewResponder creates a responder with no pending requests.
func NewResponder() *Responder {
	return &Responder{pending: make(map[string]chan Action)}
}

// Await blocks until the operator answers or ctx is done. The returned
// action is never ActionDeny with a nil error; denial is reported as a
// *DeniedError so callers treat it like any refusal.
func (r *Responder) Await(ctx context.Context, req Request) (Action, error) {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	ch := make(chan Action, 1)
	r.mu.Lock()
	r.pending[req.ID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, req.ID)
		r.mu.Unlock()
	}()

	event.Publish(event.Event{
		Type: event.PermissionRequired,
		Data: event.PermissionRequiredData{
			ID:        req.ID,
			SessionID: req.SessionID,
			ToolName:  req.ToolName,
			CallID:    req.CallID,
			Reason:    string(req.Reason),
		},
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case action := <-ch:
		if action == ActionDeny {
			return ActionDeny, &DeniedError{
				SessionID: req.SessionID,
				ToolName:  req.ToolName,
				CallID:    req.CallID,
				Message:   "Permission denied by user",
			}
		}
		return action, nil
	}
}

// Respond delivers the operator's decision for a pending request.
// Returns false when no request with that id is waiting.
func (r *Responder) Respond(requestID string, action Action) bool {
	r.mu.Lock()
	ch, ok := r.pending[requestID]
	r.mu.Unlock()

	if ok {
		ch <- action
	}

	event.Publish(event.Event{
		Type: event.PermissionResolved,
		Data: event.PermissionResolvedData{
			ID:      requestID,
			Granted: action != ActionDeny,
			Scope:   scopeOf(action),
		},
	})

	return ok
}

// Pending returns the ids of requests currently awaiting a decision.
func (r *Responder) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.pending))
	for id := range r.pending {
		out = append(out, id)
	}
	return out
}

func scopeOf(action Action) string {
	switch action {
	case ApproveOnce:
		return "once"
	case ApproveSession:
		return "session"
	case ApproveAlways:
		return "always"
	}
	return ""
}
