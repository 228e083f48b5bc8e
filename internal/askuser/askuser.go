// Package askuser implements the AskUserQuestion tool: the agent poses
// structured questions and blocks until the human answers or cancels.
package askuser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/vaultcode-ai/vaultcode/internal/event"
)

// ToolName is the tool registered with the transport.
const ToolName = "AskUserQuestion"

// Option is one selectable answer.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is one question to present. The UI always adds an "Other"
// free-text option; multi-select answers are joined with ", ".
type Question struct {
	Question    string   `json:"question"`
	Header      string   `json:"header,omitempty"`
	Options     []Option `json:"options"`
	MultiSelect bool     `json:"multiSelect"`
}

// Request is a pending set of questions awaiting an answer.
type Request struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionID"`
	CallID    string     `json:"callID"`
	Questions []Question `json:"questions"`
}

// Asker bridges the agent's questions to whoever is driving the UI. Ask
// blocks the calling tool execution; Respond is called from the server
// when the human submits the form.
type Asker struct {
	mu      sync.Mutex
	pending map[string]pendingAsk
}

type pendingAsk struct {
	req Request
	ch  chan map[string]string
}

// New creates an Asker.
func New() *Asker {
	return &Asker{pending: make(map[string]pendingAsk)}
}

// ParseInput decodes the tool input into questions.
func ParseInput(input map[string]any) ([]Question, error) {
	raw, ok := input["questions"]
	if !ok {
		return nil, fmt.Errorf("missing questions")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("empty questions")
	}
	return questions, nil
}

// Ask publishes a question.asked event and blocks until Respond delivers
// the answers or ctx is cancelled. Answers are keyed by question text; a
// question the user skipped maps to "".
func (a *Asker) Ask(ctx context.Context, sessionID, callID string, questions []Question) (map[string]string, error) {
	req := Request{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		CallID:    callID,
		Questions: questions,
	}
	ch := make(chan map[string]string, 1)

	a.mu.Lock()
	a.pending[req.ID] = pendingAsk{req: req, ch: ch}
	a.mu.Unlock()

	event.Publish(event.Event{
		Type: event.QuestionAsked,
		Data: event.QuestionAskedData{
			ID:        req.ID,
			SessionID: req.SessionID,
			CallID:    req.CallID,
			Questions: req.Questions,
		},
	})

	select {
	case answers := <-ch:
		out := make(map[string]string, len(questions))
		for _, q := range questions {
			out[q.Question] = answers[q.Question]
		}
		return out, nil
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Respond delivers answers for a pending request. It reports whether the
// request was still pending.
func (a *Asker) Respond(requestID string, answers map[string]string) bool {
	a.mu.Lock()
	p, ok := a.pending[requestID]
	if ok {
		delete(a.pending, requestID)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}

	if answers == nil {
		answers = map[string]string{}
	}
	p.ch <- answers

	event.Publish(event.Event{
		Type: event.QuestionAnswered,
		Data: event.QuestionAnsweredData{
			ID:      requestID,
			Answers: answers,
		},
	})
	return true
}

// Pending returns the open requests, for UI reattachment.
func (a *Asker) Pending() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p.req)
	}
	return out
}

// FormatResult renders the answers as the JSON object fed back to the
// agent as the tool result.
func FormatResult(answers map[string]string) (string, error) {
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(data), nil
}
