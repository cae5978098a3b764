package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luma-agent/luma/internal/agent"
	"github.com/luma-agent/luma/internal/model"
	"github.com/luma-agent/luma/internal/prompts"
)

// fakeRunner appends a fixed tool exchange and answer.
type fakeRunner struct {
	err  error
	seen []*schema.Message
}

func (f *fakeRunner) Run(ctx context.Context, transcript []*schema.Message, observe agent.Observer) (agent.Result, error) {
	f.seen = transcript
	if f.err != nil {
		return agent.Result{}, f.err
	}
	added := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "worldview_link", Arguments: `{"query":"fires"}`},
		}}),
		schema.ToolMessage("https://worldview.earthdata.nasa.gov/?l=A&t=x&v=y", "call-1", schema.WithToolName("worldview_link")),
		schema.AssistantMessage("Here is your map.", nil),
	}
	for _, m := range added {
		if err := ctx.Err(); err != nil {
			return agent.Result{}, err
		}
		if observe != nil {
			observe(m)
		}
	}
	return agent.Result{Text: "Here is your map.", Messages: added, Rounds: 1}, nil
}

var testPrompts = prompts.Set{System: "sys", User: "Q: {input}"}

func TestInvoke(t *testing.T) {
	runner := &fakeRunner{}
	svc := New(runner, testPrompts, nil)

	st, err := svc.Invoke(context.Background(), "fires", "thread-abc")
	require.NoError(t, err)

	assert.Equal(t, "Here is your map.", st.Output)
	assert.Equal(t, "thread-abc", st.ThreadID)
	assert.Equal(t, []string{}, st.ImagesOutput)

	types := make([]string, 0, len(st.Messages))
	for _, m := range st.Messages {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{"system", "human", "ai", "tool", "ai"}, types)
	assert.Equal(t, "Q: fires", st.Messages[1].Content)
	assert.Equal(t, "fires", st.Messages[1].AdditionalKwargs["raw_input"])
	assert.Equal(t, "call-1", st.Messages[3].AdditionalKwargs["tool_call_id"])

	require.Len(t, runner.seen, 2)
	assert.Equal(t, "sys", runner.seen[0].Content)
}

func TestInvokeGeneratesThreadID(t *testing.T) {
	svc := New(&fakeRunner{}, testPrompts, nil)
	st, err := svc.Invoke(context.Background(), "fires", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(st.ThreadID, "thread-"), st.ThreadID)
}

func TestInvokeBlankInputOmitsHumanMessage(t *testing.T) {
	runner := &fakeRunner{}
	svc := New(runner, prompts.Set{System: "sys", User: "{input}"}, nil)
	_, err := svc.Invoke(context.Background(), "", "t")
	require.NoError(t, err)
	require.Len(t, runner.seen, 1)
	assert.Equal(t, schema.System, runner.seen[0].Role)
}

func TestInvokeError(t *testing.T) {
	svc := New(&fakeRunner{err: errors.New("model down")}, testPrompts, nil)
	_, err := svc.Invoke(context.Background(), "fires", "t")
	assert.ErrorContains(t, err, "model down")
}

func TestStream(t *testing.T) {
	svc := New(&fakeRunner{}, testPrompts, nil)

	var states []model.AgentState
	err := svc.Stream(context.Background(), "fires", "t", func(s model.AgentState) error {
		states = append(states, s)
		return nil
	})
	require.NoError(t, err)

	// prepared + three appended messages + final
	require.Len(t, states, 5)
	assert.Len(t, states[0].Messages, 2)
	assert.Len(t, states[3].Messages, 5)
	assert.Empty(t, states[3].Output)
	assert.Equal(t, "Here is your map.", states[4].Output)
	for _, s := range states {
		assert.Equal(t, "t", s.ThreadID)
	}
}

func TestStreamStopsOnEmitError(t *testing.T) {
	svc := New(&fakeRunner{}, testPrompts, nil)
	stop := errors.New("client gone")

	calls := 0
	err := svc.Stream(context.Background(), "fires", "t", func(model.AgentState) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestToMessagesResponseMetadata(t *testing.T) {
	reply := schema.AssistantMessage("hi", nil)
	reply.ResponseMeta = &schema.ResponseMeta{
		FinishReason: "stop",
		Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}
	msgs := ToMessages([]*schema.Message{reply, nil})
	require.Len(t, msgs, 1)
	assert.Equal(t, "stop", msgs[0].ResponseMetadata["finish_reason"])
	assert.Equal(t, map[string]any{
		"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12,
	}, msgs[0].ResponseMetadata["token_usage"])
}
