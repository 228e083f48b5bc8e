// Package session owns the per-session state machine: one active turn at a
// time, a FIFO queue of waiting messages, permission suspension, retry on
// transient transport failures, and the budget/turn guards.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vaultcode-ai/vaultcode/internal/config"
	"github.com/vaultcode-ai/vaultcode/internal/event"
	"github.com/vaultcode-ai/vaultcode/internal/format"
	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/internal/permission"
	"github.com/vaultcode-ai/vaultcode/internal/queue"
	"github.com/vaultcode-ai/vaultcode/internal/storage"
	"github.com/vaultcode-ai/vaultcode/internal/toolcall"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// ErrSessionNotFound is returned for operations on unknown sessions.
var ErrSessionNotFound = fmt.Errorf("session not found")

// turnIncrement is how much a guard "continue" raises the turn limit by.
const turnIncrement = 10

// Controller coordinates sessions. Each session runs at most one turn at a
// time; messages submitted while a turn is active are queued and drained
// in order when the turn completes.
type Controller struct {
	transport transport.Transport
	store     *storage.Store
	settings  *config.SettingsStore
	responder *permission.Responder
	loop      *permission.LoopDetector
	log       zerolog.Logger

	// budgetIncrement is how much a guard "continue" raises the budget
	// limit by, in USD.
	budgetIncrement float64

	// newBackOff builds the retry policy for one turn. Swappable in tests.
	newBackOff func() backoff.BackOff

	mu       sync.Mutex
	sessions map[string]*state
}

// state is the controller-internal view of one session.
type state struct {
	sess     *types.Session
	status   types.SessionStatus
	queue    *queue.Queue
	calls    *toolcall.Registry
	approved *permission.Approvals
	cancel   context.CancelFunc

	// Effective limits; guard continues raise them above the settings.
	budgetLimit float64
	turnLimit   int

	guard *pendingGuard
}

// pendingGuard holds a dispatch blocked on the budget or turn guard until
// the human decides.
type pendingGuard struct {
	kind    string // "budget" | "turns"
	content string
}

// Options configures a Controller.
type Options struct {
	Transport       transport.Transport
	Store           *storage.Store
	Settings        *config.SettingsStore
	Responder       *permission.Responder
	BudgetIncrement float64
}

// NewController creates a controller.
func NewController(opts Options) *Controller {
	increment := opts.BudgetIncrement
	if increment <= 0 {
		increment = 1.0
	}
	return &Controller{
		transport:       opts.Transport,
		store:           opts.Store,
		settings:        opts.Settings,
		responder:       opts.Responder,
		loop:            permission.NewLoopDetector(),
		log:             logging.ForService("session"),
		budgetIncrement: increment,
		newBackOff:      defaultBackOff,
		sessions:        make(map[string]*state),
	}
}

// defaultBackOff is the retry policy for transient turn failures.
func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 30 * time.Second
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2.0
	return backoff.WithMaxRetries(bo, 2)
}

// Create starts a new session and persists it.
func (c *Controller) Create(ctx context.Context) (*types.Session, error) {
	now := time.Now().UnixMilli()
	sess := &types.Session{
		ID:    "ses_" + ulid.Make().String(),
		Turns: []*types.Turn{},
		Time:  types.SessionTime{Created: now, Updated: now},
	}

	if err := c.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	settings := c.settings.Current()
	c.mu.Lock()
	c.sessions[sess.ID] = &state{
		sess:        sess,
		status:      types.StatusIdle,
		queue:       queue.New(),
		calls:       toolcall.NewRegistry(),
		approved:    permission.NewApprovals(),
		budgetLimit: settings.MaxBudgetPerSession,
		turnLimit:   settings.MaxTurns,
	}
	c.mu.Unlock()

	c.publishSession(sess)
	return c.snapshot(sess), nil
}

// Get returns a snapshot of a session, hydrating from storage if needed.
func (c *Controller) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(st.sess), nil
}

// List returns the IDs of all known sessions.
func (c *Controller) List(ctx context.Context) ([]string, error) {
	return c.store.ListSessions(ctx)
}

// Delete removes a session. An active turn is aborted first.
func (c *Controller) Delete(ctx context.Context, sessionID string) error {
	c.Abort(sessionID)
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	return c.store.DeleteSession(ctx, sessionID)
}

// Status returns the controller state for a session.
func (c *Controller) Status(ctx context.Context, sessionID string) (types.SessionStatus, error) {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return st.status, nil
}

// ToolCalls returns the tool calls recorded for a session, in emission
// order.
func (c *Controller) ToolCalls(ctx context.Context, sessionID string) ([]types.ToolCall, error) {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return st.calls.All(), nil
}

// Pending returns the queued messages for a session.
func (c *Controller) Pending(ctx context.Context, sessionID string) ([]types.QueuedMessage, error) {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return st.queue.Snapshot(), nil
}

// RemoveQueued removes one message from a session's queue before it is
// dispatched.
func (c *Controller) RemoveQueued(ctx context.Context, sessionID, messageID string) (bool, error) {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return false, err
	}
	removed := st.queue.Remove(messageID)
	if removed {
		c.persistQueue(ctx, sessionID, st)
		c.publishQueue(sessionID, st)
	}
	return removed, nil
}

// Submit hands a user message to a session. When the session is idle the
// message dispatches immediately; otherwise it joins the queue.
func (c *Controller) Submit(ctx context.Context, sessionID, content string) error {
	if content == "" {
		return fmt.Errorf("empty message")
	}
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if st.sess.Title == "" {
		st.sess.Title = format.Title(content)
	}
	c.mu.Unlock()

	c.dispatch(sessionID, st, content)
	return nil
}

// Abort cancels the active turn, if any. Queued messages are kept.
func (c *Controller) Abort(sessionID string) {
	c.mu.Lock()
	st, ok := c.sessions[sessionID]
	var cancel context.CancelFunc
	if ok && st.cancel != nil {
		cancel = st.cancel
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RespondGuard resolves a pending budget/turn guard. Continue raises the
// relevant limit and dispatches the blocked message; cancel drains the
// queue without dispatching anything.
func (c *Controller) RespondGuard(ctx context.Context, sessionID string, proceed bool) error {
	st, err := c.stateFor(ctx, sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	guard := st.guard
	st.guard = nil
	if guard == nil {
		c.mu.Unlock()
		return fmt.Errorf("no guard pending for session %s", sessionID)
	}

	if !proceed {
		st.queue.Restore(nil)
		st.status = types.StatusIdle
		c.mu.Unlock()
		c.persistQueue(ctx, sessionID, st)
		c.publishQueue(sessionID, st)
		return nil
	}

	switch guard.kind {
	case "budget":
		st.budgetLimit += c.budgetIncrement
	case "turns":
		st.turnLimit += turnIncrement
	}
	c.mu.Unlock()

	c.dispatch(sessionID, st, guard.content)
	return nil
}

// stateFor returns in-memory state for a session, hydrating a stored
// session (and its queue) on first touch.
func (c *Controller) stateFor(ctx context.Context, sessionID string) (*state, error) {
	c.mu.Lock()
	if st, ok := c.sessions[sessionID]; ok {
		c.mu.Unlock()
		return st, nil
	}
	c.mu.Unlock()

	sess, err := c.store.LoadSession(ctx, sessionID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	pending, err := c.store.LoadQueue(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A turn that was live when the process died can never finish now.
	if turn := sess.CurrentTurn(); turn != nil {
		now := time.Now().UnixMilli()
		turn.Status = types.TurnAborted
		turn.Time.End = &now
	}

	q := queue.New()
	q.Restore(pending)

	settings := c.settings.Current()
	st := &state{
		sess:        sess,
		status:      types.StatusIdle,
		queue:       q,
		calls:       toolcall.NewRegistry(),
		approved:    permission.NewApprovals(),
		budgetLimit: settings.MaxBudgetPerSession,
		turnLimit:   settings.MaxTurns,
	}

	c.mu.Lock()
	if existing, ok := c.sessions[sessionID]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.sessions[sessionID] = st
	c.mu.Unlock()
	return st, nil
}

// snapshot copies a session for callers outside the controller. Caller
// holds c.mu or has exclusive access.
func (c *Controller) snapshot(sess *types.Session) *types.Session {
	out := *sess
	out.Turns = make([]*types.Turn, len(sess.Turns))
	for i, turn := range sess.Turns {
		t := *turn
		out.Turns[i] = &t
	}
	return &out
}

func (c *Controller) publishSession(sess *types.Session) {
	event.Publish(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: sess},
	})
}

func (c *Controller) publishQueue(sessionID string, st *state) {
	event.Publish(event.Event{
		Type: event.QueueUpdated,
		Data: event.QueueUpdatedData{
			SessionID: sessionID,
			Pending:   st.queue.Snapshot(),
		},
	})
}

func (c *Controller) persistQueue(ctx context.Context, sessionID string, st *state) {
	if err := c.store.SaveQueue(ctx, sessionID, st.queue.Snapshot()); err != nil {
		c.log.Warn().Str("session", sessionID).Err(err).Msg("persist queue")
	}
}

func (c *Controller) persistSession(st *state) {
	c.mu.Lock()
	snap := c.snapshot(st.sess)
	c.mu.Unlock()
	if err := c.store.SaveSession(context.Background(), snap); err != nil {
		c.log.Warn().Str("session", snap.ID).Err(err).Msg("persist session")
	}
}
