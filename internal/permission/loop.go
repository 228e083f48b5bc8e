package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// loopThreshold is the number of consecutive identical tool calls that
// counts as a loop.
const loopThreshold = 3

// LoopDetector spots an agent repeating the exact same tool call. The
// controller uses it to warn the operator; it never changes a decision.
type LoopDetector struct {
	mu       sync.Mutex
	lastKey  map[string]string
	repeatsN map[string]int
}

// NewLoopDetector creates a detector with no history.
func NewLoopDetector() *LoopDetector {
	return &LoopDetector{
		lastKey:  make(map[string]string),
		repeatsN: make(map[string]int),
	}
}

// Check records a call and reports whether it completes a run of
// identical calls at or past the threshold.
func (d *LoopDetector) Check(sessionID, toolName string, input map[string]any) bool {
	key := callKey(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastKey[sessionID] == key {
		d.repeatsN[sessionID]++
	} else {
		d.lastKey[sessionID] = key
		d.repeatsN[sessionID] = 1
	}

	return d.repeatsN[sessionID] >= loopThreshold
}

// Clear forgets a session's history.
func (d *LoopDetector) Clear(sessionID string) {
	d.mu.Lock()
	delete(d.lastKey, sessionID)
	delete(d.repeatsN, sessionID)
	d.mu.Unlock()
}

// callKey builds a stable fingerprint of a tool call.
func callKey(toolName string, input map[string]any) string {
	data, _ := json.Marshal(input)
	sum := sha256.Sum256(append([]byte(toolName+"\x00"), data...))
	return hex.EncodeToString(sum[:])
}
