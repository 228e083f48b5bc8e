// Package queue provides the ordered buffer of user messages awaiting turn
// availability. The queue is the backpressure mechanism for the single
// concurrent transport connection a session owns.
package queue

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// Queue is a FIFO buffer of pending user messages. All methods are safe
// for concurrent use. Entries leave the queue only through Dequeue or an
// explicit Remove.
type Queue struct {
	mu      sync.Mutex
	entries []types.QueuedMessage
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a message and returns the stored entry. IDs are ULIDs,
// unique for the lifetime of the process.
func (q *Queue) Enqueue(content string) types.QueuedMessage {
	msg := types.QueuedMessage{
		ID:        ulid.Make().String(),
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}

	q.mu.Lock()
	q.entries = append(q.entries, msg)
	q.mu.Unlock()

	return msg
}

// Dequeue removes and returns the oldest entry. The second return value is
// false when the queue is empty; an empty queue is not an error.
func (q *Queue) Dequeue() (types.QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return types.QueuedMessage{}, false
	}

	msg := q.entries[0]
	q.entries = q.entries[1:]
	return msg, true
}

// Remove deletes the entry with the given id, preserving the relative
// order of the rest. Returns false if no entry matches.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, msg := range q.entries {
		if msg.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the pending entries in order.
func (q *Queue) Snapshot() []types.QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.QueuedMessage, len(q.entries))
	copy(out, q.entries)
	return out
}

// Restore replaces the queue contents with previously persisted entries,
// preserving their order and ids. Used when resuming a workspace.
func (q *Queue) Restore(entries []types.QueuedMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = make([]types.QueuedMessage, len(entries))
	copy(q.entries, entries)
}
