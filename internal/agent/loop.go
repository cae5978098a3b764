// Package agent runs a chat model against a transcript, executing the tools
// it asks for until it produces a plain answer or runs out of rounds.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/luma-agent/luma/internal/telemetry"
)

// DefaultMaxRounds is the number of tool rounds allowed after the first
// model call in a turn.
const DefaultMaxRounds = 3

// ToolErrorPrefix starts the tool message recorded when a tool fails.
const ToolErrorPrefix = "Tool error: "

// ErrEmptyTranscript is returned when Run is called with no messages.
var ErrEmptyTranscript = errors.New("agent: empty transcript")

// Observer is called with every message appended to the transcript, in
// order. It runs on the loop's goroutine.
type Observer func(msg *schema.Message)

// Result is the outcome of one turn.
type Result struct {
	// Text is the content of the last model reply.
	Text string
	// Messages holds only the messages appended during this turn.
	Messages []*schema.Message
	// Rounds counts tool rounds executed.
	Rounds int
}

// Loop drives a tool-calling model. A Loop is safe for concurrent use;
// each Run owns its transcript.
type Loop struct {
	model     model.ToolCallingChatModel
	registry  *Registry
	maxRounds int
	logger    *slog.Logger
	tracer    trace.Tracer
	rounds    otelmetric.Int64Counter
	toolCalls otelmetric.Int64Counter
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxRounds overrides DefaultMaxRounds. Zero disables tool execution.
func WithMaxRounds(n int) Option {
	return func(l *Loop) {
		if n >= 0 {
			l.maxRounds = n
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop binds the registry's tools to chat and returns a Loop.
func NewLoop(chat model.ToolCallingChatModel, registry *Registry, opts ...Option) (*Loop, error) {
	if chat == nil {
		return nil, errors.New("agent: chat model is required")
	}
	if registry == nil {
		registry = &Registry{}
	}
	bound := chat
	if infos := registry.Infos(); len(infos) > 0 {
		var err error
		if bound, err = chat.WithTools(infos); err != nil {
			return nil, fmt.Errorf("agent: bind tools: %w", err)
		}
	}

	l := &Loop{
		model:     bound,
		registry:  registry,
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
		tracer:    telemetry.Tracer("luma/agent"),
	}
	for _, opt := range opts {
		opt(l)
	}

	meter := telemetry.Meter("luma/agent")
	l.rounds, _ = meter.Int64Counter("luma.agent.rounds")
	l.toolCalls, _ = meter.Int64Counter("luma.agent.tool_calls")
	return l, nil
}

// Run invokes the model on transcript and keeps executing requested tools
// until a reply carries no tool calls, a round yields no tool results, or
// the round limit is reached. The caller's slice is not modified. Model
// errors end the turn and are returned along with what was produced so far.
func (l *Loop) Run(ctx context.Context, transcript []*schema.Message, observe Observer) (Result, error) {
	if len(transcript) == 0 {
		return Result{}, ErrEmptyTranscript
	}
	ctx, span := l.tracer.Start(ctx, "agent.run")
	defer span.End()

	msgs := make([]*schema.Message, len(transcript), len(transcript)+8)
	copy(msgs, transcript)
	var res Result

	appendMsg := func(m *schema.Message) {
		msgs = append(msgs, m)
		res.Messages = append(res.Messages, m)
		if observe != nil {
			observe(m)
		}
	}

	for {
		reply, err := l.model.Generate(ctx, msgs)
		if err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("agent: generate: %w", err)
		}
		if reply == nil {
			reply = schema.AssistantMessage("", nil)
		}
		appendMsg(reply)
		res.Text = reply.Content

		if len(reply.ToolCalls) == 0 {
			break
		}
		if res.Rounds >= l.maxRounds {
			l.logger.Warn("agent: round limit reached", "rounds", res.Rounds, "pending_calls", len(reply.ToolCalls))
			break
		}

		results := l.execute(ctx, reply.ToolCalls)
		if len(results) == 0 {
			break
		}
		for _, m := range results {
			appendMsg(m)
		}
		res.Rounds++
		l.count(ctx, l.rounds)
	}

	span.SetAttributes(attribute.Int("agent.rounds", res.Rounds))
	return res, nil
}

// execute runs calls sequentially in order. Unknown tools produce no
// message; failures produce an error message for the model to read.
func (l *Loop) execute(ctx context.Context, calls []schema.ToolCall) []*schema.Message {
	out := make([]*schema.Message, 0, len(calls))
	for _, call := range calls {
		name := call.Function.Name
		t, ok := l.registry.Lookup(name)
		if !ok {
			l.logger.Warn("agent: unknown tool requested", "tool", name, "call_id", call.ID)
			l.count(ctx, l.toolCalls, attribute.String("tool", name), attribute.String("outcome", "unknown"))
			continue
		}

		content, err := invoke(ctx, t, call.Function.Arguments)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			content = ToolErrorPrefix + err.Error()
			l.logger.Warn("agent: tool failed", "tool", name, "call_id", call.ID, "error", err)
		} else {
			l.logger.Debug("agent: tool result", "tool", name, "call_id", call.ID, "result", content)
		}
		l.count(ctx, l.toolCalls, attribute.String("tool", name), attribute.String("outcome", outcome))
		out = append(out, schema.ToolMessage(content, call.ID, schema.WithToolName(name)))
	}
	return out
}

// invoke runs t and reports a panic as an ordinary tool failure.
func invoke(ctx context.Context, t tool.InvokableTool, args string) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.InvokableRun(ctx, args)
}

func (l *Loop) count(ctx context.Context, c otelmetric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
}
