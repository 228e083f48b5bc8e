package types

// QueuedMessage is a user message waiting for turn availability.
// This is also its persisted shape.
type QueuedMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}
