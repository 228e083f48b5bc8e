package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New()

	q.Enqueue("First message")
	q.Enqueue("Second message")
	q.Enqueue("Third message")
	assert.Equal(t, 3, q.Len())

	var got []string
	for {
		msg, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, msg.Content)
	}

	assert.Equal(t, []string{"First message", "Second message", "Third message"}, got)
	assert.Equal(t, 0, q.Len())
}

func TestDequeueEmpty(t *testing.T) {
	q := New()

	msg, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Empty(t, msg.ID)
}

func TestEnqueueMetadata(t *testing.T) {
	q := New()

	before := time.Now().UnixMilli()
	msg := q.Enqueue("Test")
	after := time.Now().UnixMilli()

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Test", msg.Content)
	assert.GreaterOrEqual(t, msg.Timestamp, before)
	assert.LessOrEqual(t, msg.Timestamp, after)
}

func TestUniqueIDs(t *testing.T) {
	q := New()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		msg := q.Enqueue("msg")
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}

func TestRemove(t *testing.T) {
	q := New()

	q.Enqueue("First")
	middle := q.Enqueue("Second")
	q.Enqueue("Third")

	assert.True(t, q.Remove(middle.ID))
	assert.Equal(t, 2, q.Len())

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "First", first.Content)

	third, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "Third", third.Content)
}

func TestRemoveMissing(t *testing.T) {
	q := New()
	q.Enqueue("First")

	assert.False(t, q.Remove("no-such-id"))
	assert.Equal(t, 1, q.Len())
}

func TestSnapshotIsCopy(t *testing.T) {
	q := New()
	q.Enqueue("a")
	q.Enqueue("b")

	snap := q.Snapshot()
	require.Len(t, snap, 2)

	// Mutating the snapshot must not affect the queue.
	snap[0].Content = "mutated"
	msg, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", msg.Content)
}

func TestRestore(t *testing.T) {
	q := New()
	q.Enqueue("stale")

	persisted := []types.QueuedMessage{
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Content: "resumed 1", Timestamp: 1700000000000},
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAW", Content: "resumed 2", Timestamp: 1700000000001},
	}
	q.Restore(persisted)

	assert.Equal(t, 2, q.Len())
	msg, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", msg.ID)
	assert.Equal(t, "resumed 1", msg.Content)
}

func TestEdgeContent(t *testing.T) {
	q := New()

	empty := q.Enqueue("")
	assert.Equal(t, "", empty.Content)

	special := "Test\n\t@[[file.md]] /command `code` **bold**"
	msg := q.Enqueue(special)

	_, _ = q.Dequeue()
	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, special, got.Content)
}
