package transport

import (
	"context"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicDefaults(t *testing.T) {
	tr := NewAnthropic(AnthropicConfig{Model: "claude-sonnet-4-5"})
	assert.Equal(t, anthropic.Model("claude-sonnet-4-5"), tr.model)
	assert.Equal(t, int64(8192), tr.maxTokens)

	tr = NewAnthropic(AnthropicConfig{MaxTokens: 1024})
	assert.Equal(t, int64(1024), tr.maxTokens)
}

func TestStartRejectsEmptyContent(t *testing.T) {
	tr := NewAnthropic(AnthropicConfig{})
	_, err := tr.Start(context.Background(), TurnRequest{SessionID: "ses_1", TurnID: "turn_1"})
	require.Error(t, err)
}

func TestCost(t *testing.T) {
	tr := NewAnthropic(AnthropicConfig{Pricing: Pricing{InputPerMTok: 3, OutputPerMTok: 15}})
	got := tr.cost(anthropic.Usage{InputTokens: 1_000_000, OutputTokens: 200_000})
	assert.InDelta(t, 3.0+3.0, got, 1e-9)

	free := NewAnthropic(AnthropicConfig{})
	assert.Zero(t, free.cost(anthropic.Usage{InputTokens: 500, OutputTokens: 500}))
}

func TestToolParams(t *testing.T) {
	tr := NewAnthropic(AnthropicConfig{Tools: []ToolDef{
		{
			Name:        "mcp__obsidian__open_file",
			Description: "Open a file in the editor",
			InputSchema: map[string]any{"path": map[string]any{"type": "string"}},
		},
		{Name: "bare"},
	}})

	params := tr.toolParams()
	require.Len(t, params, 2)
	assert.Equal(t, "mcp__obsidian__open_file", params[0].OfTool.Name)
	assert.Contains(t, params[0].OfTool.InputSchema.Properties, "path")
	// A missing schema still produces a valid empty object schema.
	assert.NotNil(t, params[1].OfTool.InputSchema.Properties)
}

func newTestStream() *anthropicStream {
	_, cancel := context.WithCancel(context.Background())
	return &anthropicStream{
		events:   make(chan Event, 64),
		cancel:   cancel,
		verdicts: make(map[string]chan toolVerdict),
	}
}

func TestStreamRespondRoutesVerdict(t *testing.T) {
	s := newTestStream()
	got := make(chan toolVerdict, 1)
	go func() {
		v, err := s.awaitVerdict(context.Background(), "call_1")
		if err == nil {
			got <- v
		}
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.verdicts) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Respond("call_1", false, "Permission denied by user"))

	select {
	case v := <-got:
		assert.False(t, v.approved)
		assert.Equal(t, "Permission denied by user", v.message)
	case <-time.After(time.Second):
		t.Fatal("verdict never delivered")
	}

	// The call is consumed; answering again is an error.
	assert.Error(t, s.Respond("call_1", true, ""))
}

func TestStreamRespondUnknownCall(t *testing.T) {
	s := newTestStream()
	assert.Error(t, s.Respond("call_nope", true, ""))
}

func TestAwaitVerdictCancelled(t *testing.T) {
	s := newTestStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.awaitVerdict(ctx, "call_1")
	require.ErrorIs(t, err, context.Canceled)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.verdicts)
}

func TestRecvAfterStreamDone(t *testing.T) {
	s := newTestStream()
	close(s.events)

	_, err := s.Recv()
	require.Error(t, err)
	assert.True(t, IsDone(err))
}

func TestEmitStopsOnCancelledTurn(t *testing.T) {
	s := newTestStream()
	s.events = make(chan Event) // no reader
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, s.emit(ctx, Event{Type: EventText, Text: "late"}))
}
