package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"

	"github.com/vaultcode-ai/vaultcode/internal/errclass"
	"github.com/vaultcode-ai/vaultcode/internal/event"
	"github.com/vaultcode-ai/vaultcode/internal/permission"
	"github.com/vaultcode-ai/vaultcode/internal/toolcall"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// dispatch starts a turn for content, queues it when another turn is
// already active, or parks it behind a guard when the session is over its
// budget or turn limit. The busy check and the status transition happen in
// one critical section so concurrent submits cannot both start a turn.
func (c *Controller) dispatch(sessionID string, st *state, content string) {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	if st.status != types.StatusIdle || st.guard != nil {
		st.queue.Enqueue(content)
		c.mu.Unlock()
		c.persistQueue(context.Background(), sessionID, st)
		c.publishQueue(sessionID, st)
		return
	}
	if st.sess.Spend >= st.budgetLimit {
		st.guard = &pendingGuard{kind: "budget", content: content}
		spend := st.sess.Spend
		limit := st.budgetLimit
		c.mu.Unlock()
		event.Publish(event.Event{
			Type: event.GuardTriggered,
			Data: event.GuardTriggeredData{
				SessionID: sessionID,
				Kind:      "budget",
				Spend:     spend,
				Limit:     limit,
			},
		})
		return
	}
	if st.sess.TurnCount >= st.turnLimit {
		st.guard = &pendingGuard{kind: "turns", content: content}
		turnCount := st.sess.TurnCount
		limit := st.turnLimit
		c.mu.Unlock()
		event.Publish(event.Event{
			Type: event.GuardTriggered,
			Data: event.GuardTriggeredData{
				SessionID: sessionID,
				Kind:      "turns",
				TurnCount: turnCount,
				Limit:     float64(limit),
			},
		})
		return
	}

	turn := &types.Turn{
		ID:     "turn_" + ulid.Make().String(),
		Input:  content,
		Status: types.TurnRunning,
		Time:   types.TurnTime{Start: now},
	}
	st.sess.Turns = append(st.sess.Turns, turn)
	st.sess.TurnCount++
	st.sess.Time.Updated = now
	st.status = types.StatusDispatching

	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	snap := c.snapshot(st.sess)
	c.mu.Unlock()

	c.persistSession(st)
	started := *turn
	event.Publish(event.Event{
		Type: event.TurnStarted,
		Data: event.TurnStartedData{SessionID: sessionID, Turn: &started},
	})
	c.publishSession(snap)

	go func() {
		defer cancel()
		c.runTurn(ctx, sessionID, st, turn)
	}()
}

// runTurn drives one turn to a terminal state, retrying transient
// transport failures with exponential backoff.
func (c *Controller) runTurn(ctx context.Context, sessionID string, st *state, turn *types.Turn) {
	op := func() error {
		return c.attemptTurn(ctx, sessionID, st, turn)
	}
	err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))

	now := time.Now().UnixMilli()
	c.mu.Lock()
	switch {
	case err == nil:
		turn.Status = types.TurnCompleted
	case ctx.Err() != nil:
		turn.Status = types.TurnAborted
	default:
		turn.Status = types.TurnErrored
		turn.Error = err.Error()
	}
	turn.Time.End = &now
	st.sess.Time.Updated = now
	st.status = types.StatusIdle
	st.cancel = nil
	finished := *turn
	snap := c.snapshot(st.sess)
	c.mu.Unlock()

	c.persistSession(st)
	switch finished.Status {
	case types.TurnCompleted:
		event.Publish(event.Event{
			Type: event.TurnCompleted,
			Data: event.TurnCompletedData{SessionID: sessionID, Turn: &finished},
		})
	case types.TurnAborted:
		event.Publish(event.Event{
			Type: event.TurnAborted,
			Data: event.TurnCompletedData{SessionID: sessionID, Turn: &finished},
		})
	case types.TurnErrored:
		event.Publish(event.Event{
			Type: event.TurnErrored,
			Data: event.TurnErroredData{
				SessionID: sessionID,
				TurnID:    finished.ID,
				Category:  string(errclass.Classify(err)),
				Message:   err.Error(),
			},
		})
	}
	c.publishSession(snap)

	// Completed turns drain the queue in order. Errors and aborts leave it
	// for the user to decide. The dequeue only happens while the session is
	// still idle, so a message submitted in the meantime keeps its turn.
	if finished.Status == types.TurnCompleted {
		c.mu.Lock()
		var next string
		drained := false
		if st.status == types.StatusIdle && st.guard == nil {
			if msg, ok := st.queue.Dequeue(); ok {
				next = msg.Content
				drained = true
			}
		}
		c.mu.Unlock()
		if drained {
			c.persistQueue(context.Background(), sessionID, st)
			c.publishQueue(sessionID, st)
			c.dispatch(sessionID, st, next)
		}
	}
}

// attemptTurn runs one transport attempt of a turn. A nil return means the
// turn completed; retryable failures come back bare, everything else is
// wrapped backoff.Permanent.
func (c *Controller) attemptTurn(ctx context.Context, sessionID string, st *state, turn *types.Turn) error {
	stream, err := c.transport.Start(ctx, transport.TurnRequest{
		SessionID: sessionID,
		TurnID:    turn.ID,
		Content:   turn.Input,
	})
	if err != nil {
		return retryClass(err)
	}
	defer stream.Close()

	// Recv only unblocks when the stream closes, so tie the stream to the
	// turn context for aborts.
	go func() {
		<-ctx.Done()
		stream.Close()
	}()

	c.setStatus(sessionID, st, types.StatusStreaming)

	for {
		ev, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return retryClass(fmt.Errorf("stream closed before turn completion"))
		}

		switch ev.Type {
		case transport.EventText:
			event.Publish(event.Event{
				Type: event.TextDelta,
				Data: event.TextDeltaData{
					SessionID: sessionID,
					TurnID:    turn.ID,
					Delta:     ev.Text,
				},
			})

		case transport.EventToolCallStart:
			if err := c.handleToolStart(ctx, sessionID, st, turn, stream, ev.Call); err != nil {
				return backoff.Permanent(err)
			}

		case transport.EventToolCallEnd:
			c.handleToolEnd(sessionID, st, ev.End)

		case transport.EventToolProgress:
			c.handleToolProgress(sessionID, st, ev.Progress)

		case transport.EventTurnComplete:
			c.mu.Lock()
			st.sess.Spend += ev.Complete.CostUSD
			c.mu.Unlock()
			return nil

		case transport.EventError:
			return retryClass(ev.Err)
		}
	}
}

// retryClass hands retryable errors to the backoff loop and seals the rest
// as permanent.
func retryClass(err error) error {
	if errclass.Classify(err).Retryable() {
		return err
	}
	return backoff.Permanent(err)
}

// handleToolStart records the call, decides permission, and either answers
// the transport immediately or suspends the turn until the human does.
// The returned error is non-nil only when the turn context ended.
func (c *Controller) handleToolStart(ctx context.Context, sessionID string, st *state, turn *types.Turn, stream transport.Stream, start *transport.ToolCallStart) error {
	id := st.calls.Start(types.ToolCall{
		ID:         start.CallID,
		TurnID:     turn.ID,
		Name:       start.Name,
		Input:      start.Input,
		IsSubagent: start.IsSubagent,
	})

	c.mu.Lock()
	turn.ToolCalls = append(turn.ToolCalls, id)
	c.mu.Unlock()
	c.publishCall(sessionID, st, id)

	if c.loop.Check(sessionID, start.Name, start.Input) {
		c.log.Warn().
			Str("session", sessionID).
			Str("tool", start.Name).
			Msg("repeated identical tool call, possible loop")
	}

	decision := permission.Decide(start.Name, c.settings.Current(), st.approved)
	if decision.Approved {
		c.markRunning(sessionID, st, id)
		return stream.Respond(id, true, "")
	}

	// Suspend until the human decides.
	c.mu.Lock()
	turn.Status = types.TurnAwaitingPermission
	st.status = types.StatusAwaitingPermission
	snap := c.snapshot(st.sess)
	c.mu.Unlock()
	c.publishSession(snap)

	action, err := c.responder.Await(ctx, permission.Request{
		SessionID: sessionID,
		ToolName:  start.Name,
		CallID:    id,
		Reason:    decision.Reason,
	})

	c.mu.Lock()
	turn.Status = types.TurnRunning
	st.status = types.StatusStreaming
	snap = c.snapshot(st.sess)
	c.mu.Unlock()
	c.publishSession(snap)

	if err != nil {
		if permission.IsDeniedError(err) {
			return stream.Respond(id, false, err.Error())
		}
		// Turn context canceled mid-wait. The call never ran and never
		// will; leave it terminal rather than pending forever.
		c.markInterrupted(sessionID, st, id)
		return err
	}

	switch action {
	case permission.ApproveSession:
		st.approved.Add(start.Name)
	case permission.ApproveAlways:
		if err := c.settings.AddAlwaysAllowed(ctx, start.Name); err != nil {
			c.log.Warn().Str("tool", start.Name).Err(err).Msg("persist always-allowed")
		}
	}

	c.markRunning(sessionID, st, id)
	return stream.Respond(id, true, "")
}

func (c *Controller) handleToolEnd(sessionID string, st *state, end *transport.ToolCallEnd) {
	now := time.Now().UnixMilli()
	status := types.ToolSuccess
	upd := toolcall.Update{Status: &status, Output: end.Output, EndTime: &now}
	if end.Error != nil {
		status = types.ToolError
		upd.Error = end.Error
	}
	if call, ok := st.calls.Get(end.CallID); ok && call.IsSubagent {
		sub := types.SubagentCompleted
		if end.Error != nil {
			sub = types.SubagentError
		}
		upd.SubagentStatus = &sub
	}
	if err := st.calls.Apply(end.CallID, upd); err != nil {
		c.log.Warn().Str("call", end.CallID).Err(err).Msg("apply tool call end")
		return
	}
	c.publishCall(sessionID, st, end.CallID)
}

func (c *Controller) handleToolProgress(sessionID string, st *state, progress *transport.ToolProgress) {
	upd := toolcall.Update{SubagentStatus: &progress.Status}
	if progress.Message != "" {
		upd.SubagentProgress = &types.SubagentProgress{
			Message:   progress.Message,
			StartTime: time.Now().UnixMilli(),
		}
	}
	if err := st.calls.Apply(progress.CallID, upd); err != nil {
		c.log.Warn().Str("call", progress.CallID).Err(err).Msg("apply tool progress")
		return
	}
	c.publishCall(sessionID, st, progress.CallID)
}

func (c *Controller) markRunning(sessionID string, st *state, callID string) {
	running := types.ToolRunning
	if err := st.calls.Apply(callID, toolcall.Update{Status: &running}); err == nil {
		c.publishCall(sessionID, st, callID)
	}
}

// markInterrupted seals a call that was discarded before it ran, as when
// the operator aborts a turn suspended on a permission decision.
func (c *Controller) markInterrupted(sessionID string, st *state, callID string) {
	now := time.Now().UnixMilli()
	status := types.ToolError
	msg := "interrupted"
	upd := toolcall.Update{Status: &status, Error: &msg, EndTime: &now}
	if call, ok := st.calls.Get(callID); ok && call.IsSubagent {
		sub := types.SubagentError
		upd.SubagentStatus = &sub
	}
	if err := st.calls.Apply(callID, upd); err == nil {
		c.publishCall(sessionID, st, callID)
	}
}

func (c *Controller) publishCall(sessionID string, st *state, callID string) {
	call, ok := st.calls.Get(callID)
	if !ok {
		return
	}
	event.Publish(event.Event{
		Type: event.ToolCallUpdated,
		Data: event.ToolCallUpdatedData{SessionID: sessionID, Call: call},
	})
}

func (c *Controller) setStatus(sessionID string, st *state, status types.SessionStatus) {
	c.mu.Lock()
	st.status = status
	snap := c.snapshot(st.sess)
	c.mu.Unlock()
	c.publishSession(snap)
}
