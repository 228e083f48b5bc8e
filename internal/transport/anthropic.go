package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// ToolInvocation is one approved tool call handed to a ToolRunner. Progress
// is non-nil only for sub-agent (Task) calls and may be called from the
// runner to surface intermediate status.
type ToolInvocation struct {
	SessionID string
	CallID    string
	Name      string
	Input     map[string]any
	Progress  func(status types.SubagentStatus, message string)
}

// ToolRunner executes approved tool calls against the workspace.
type ToolRunner interface {
	Run(ctx context.Context, inv ToolInvocation) (string, error)
}

// ToolDef describes one tool exposed to the model.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Pricing is USD per million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// AnthropicConfig configures the Anthropic transport.
type AnthropicConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int64
	Pricing      Pricing
	Tools        []ToolDef
	Runner       ToolRunner
}

// AnthropicTransport runs turns over the Anthropic Messages API. Each turn
// is an agentic loop: stream an assistant message, execute any approved
// tool calls, feed results back, repeat until the model stops.
type AnthropicTransport struct {
	api       *anthropic.Client
	model     anthropic.Model
	system    string
	maxTokens int64
	pricing   Pricing
	tools     []ToolDef
	runner    ToolRunner
}

// NewAnthropic creates the transport. The API key falls back to the
// ANTHROPIC_API_KEY environment variable when empty.
func NewAnthropic(cfg AnthropicConfig) *AnthropicTransport {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	client := anthropic.NewClient(opts...)
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicTransport{
		api:       &client,
		model:     anthropic.Model(cfg.Model),
		system:    cfg.SystemPrompt,
		maxTokens: maxTokens,
		pricing:   cfg.Pricing,
		tools:     cfg.Tools,
		runner:    cfg.Runner,
	}
}

type toolVerdict struct {
	approved bool
	message  string
}

type anthropicStream struct {
	events chan Event
	cancel context.CancelFunc

	mu       sync.Mutex
	verdicts map[string]chan toolVerdict
	closed   bool
}

// Start launches the turn loop in a goroutine and returns immediately.
func (t *AnthropicTransport) Start(ctx context.Context, req TurnRequest) (Stream, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("empty turn content")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &anthropicStream{
		events:   make(chan Event, 64),
		cancel:   cancel,
		verdicts: make(map[string]chan toolVerdict),
	}
	go t.run(ctx, req, s)
	return s, nil
}

func (s *anthropicStream) Recv() (Event, error) {
	ev, ok := <-s.events
	if !ok {
		return Event{}, errStreamDone
	}
	return ev, nil
}

var errStreamDone = fmt.Errorf("stream done")

// IsDone reports whether err marks normal stream exhaustion.
func IsDone(err error) bool { return err == errStreamDone }

func (s *anthropicStream) Respond(callID string, approved bool, message string) error {
	s.mu.Lock()
	ch, ok := s.verdicts[callID]
	if ok {
		delete(s.verdicts, callID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending tool call %q", callID)
	}
	ch <- toolVerdict{approved: approved, message: message}
	return nil
}

func (s *anthropicStream) Close() error {
	s.cancel()
	return nil
}

// emit delivers ev unless the turn context is gone.
func (s *anthropicStream) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// awaitVerdict registers a pending tool call and blocks until Respond or
// cancellation.
func (s *anthropicStream) awaitVerdict(ctx context.Context, callID string) (toolVerdict, error) {
	ch := make(chan toolVerdict, 1)
	s.mu.Lock()
	s.verdicts[callID] = ch
	s.mu.Unlock()
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.verdicts, callID)
		s.mu.Unlock()
		return toolVerdict{}, ctx.Err()
	}
}

func (t *AnthropicTransport) run(ctx context.Context, req TurnRequest, s *anthropicStream) {
	defer close(s.events)
	log := logging.ForService("transport")

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Content)),
	}

	var totalCost float64
	for {
		params := anthropic.MessageNewParams{
			Model:     t.model,
			MaxTokens: t.maxTokens,
			Messages:  messages,
		}
		if t.system != "" {
			params.System = []anthropic.TextBlockParam{{Text: t.system}}
		}
		if len(t.tools) > 0 {
			params.Tools = t.toolParams()
		}

		stream := t.api.Messages.NewStreaming(ctx, params)
		msg := anthropic.Message{}
		for stream.Next() {
			ev := stream.Current()
			if err := msg.Accumulate(ev); err != nil {
				s.emit(ctx, Event{Type: EventError, Err: fmt.Errorf("accumulate stream event: %w", err)})
				return
			}
			if delta, ok := ev.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
					if !s.emit(ctx, Event{Type: EventText, Text: text.Text}) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			s.emit(ctx, Event{Type: EventError, Err: err})
			return
		}

		totalCost += t.cost(msg.Usage)

		toolUses := toolUseBlocks(msg)
		if msg.StopReason != "tool_use" || len(toolUses) == 0 {
			s.emit(ctx, Event{Type: EventTurnComplete, Complete: &TurnComplete{CostUSD: totalCost}})
			return
		}

		messages = append(messages, msg.ToParam())
		results := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, tu := range toolUses {
			input := map[string]any{}
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &input); err != nil {
					log.Warn().Str("tool", tu.Name).Err(err).Msg("tool input is not a JSON object")
				}
			}
			isSubagent := tu.Name == "Task"
			if !s.emit(ctx, Event{Type: EventToolCallStart, Call: &ToolCallStart{
				CallID:     tu.ID,
				Name:       tu.Name,
				Input:      input,
				IsSubagent: isSubagent,
			}}) {
				return
			}

			verdict, err := s.awaitVerdict(ctx, tu.ID)
			if err != nil {
				return
			}
			if !verdict.approved {
				refusal := verdict.message
				if refusal == "" {
					refusal = "Permission denied by user"
				}
				s.emit(ctx, Event{Type: EventToolCallEnd, End: &ToolCallEnd{CallID: tu.ID, Error: &refusal}})
				results = append(results, anthropic.NewToolResultBlock(tu.ID, refusal, true))
				continue
			}

			inv := ToolInvocation{SessionID: req.SessionID, CallID: tu.ID, Name: tu.Name, Input: input}
			if isSubagent {
				callID := tu.ID
				inv.Progress = func(status types.SubagentStatus, message string) {
					s.emit(ctx, Event{Type: EventToolProgress, Progress: &ToolProgress{
						CallID:  callID,
						Status:  status,
						Message: message,
					}})
				}
				inv.Progress(types.SubagentRunning, "")
			}
			output, runErr := t.runner.Run(ctx, inv)
			if runErr != nil {
				errText := runErr.Error()
				s.emit(ctx, Event{Type: EventToolCallEnd, End: &ToolCallEnd{CallID: tu.ID, Error: &errText}})
				results = append(results, anthropic.NewToolResultBlock(tu.ID, errText, true))
				continue
			}
			s.emit(ctx, Event{Type: EventToolCallEnd, End: &ToolCallEnd{CallID: tu.ID, Output: &output}})
			results = append(results, anthropic.NewToolResultBlock(tu.ID, output, false))
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}
}

func (t *AnthropicTransport) toolParams() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(t.tools))
	for _, td := range t.tools {
		props := td.InputSchema
		if props == nil {
			props = map[string]any{}
		}
		tp := anthropic.ToolParam{
			Name:        td.Name,
			Description: anthropic.String(td.Description),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: props},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tp})
	}
	return out
}

func (t *AnthropicTransport) cost(u anthropic.Usage) float64 {
	return float64(u.InputTokens)/1e6*t.pricing.InputPerMTok +
		float64(u.OutputTokens)/1e6*t.pricing.OutputPerMTok
}

func toolUseBlocks(msg anthropic.Message) []anthropic.ToolUseBlock {
	var out []anthropic.ToolUseBlock
	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}
