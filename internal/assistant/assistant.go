// Package assistant runs one conversational turn: it builds the transcript
// from the configured prompts, drives the tool loop and shapes the result
// for the API.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/luma-agent/luma/internal/agent"
	"github.com/luma-agent/luma/internal/model"
	"github.com/luma-agent/luma/internal/prompts"
)

// rawInputKey carries the untemplated user text on the human message.
const rawInputKey = "raw_input"

// Runner executes one tool-calling turn. *agent.Loop satisfies it.
type Runner interface {
	Run(ctx context.Context, transcript []*schema.Message, observe agent.Observer) (agent.Result, error)
}

// EmitFunc receives streamed states. Returning an error stops the turn.
type EmitFunc func(model.AgentState) error

// Service answers user turns.
type Service struct {
	runner  Runner
	prompts prompts.Set
	logger  *slog.Logger
}

// New creates a Service.
func New(runner Runner, p prompts.Set, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, prompts: p, logger: logger}
}

// NewThreadID returns a fresh conversation id.
func NewThreadID() string {
	return "thread-" + uuid.NewString()
}

// Invoke runs a turn and returns the final state.
func (s *Service) Invoke(ctx context.Context, input, threadID string) (model.AgentState, error) {
	if threadID == "" {
		threadID = NewThreadID()
	}
	start := time.Now()
	transcript := s.prepare(input)

	res, err := s.runner.Run(ctx, transcript, nil)
	if err != nil {
		s.logger.Error("assistant: turn failed", "thread_id", threadID, "error", err)
		return model.AgentState{}, err
	}

	s.logger.Info("assistant: turn complete",
		"thread_id", threadID,
		"rounds", res.Rounds,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return state(append(transcript, res.Messages...), res.Text, threadID), nil
}

// Stream runs a turn and emits the state after the prompts are prepared,
// after every appended message, and once more with the final output.
// An emit error cancels the turn and is returned.
func (s *Service) Stream(ctx context.Context, input, threadID string, emit EmitFunc) error {
	if threadID == "" {
		threadID = NewThreadID()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := s.prepare(input)
	if err := emit(state(msgs, "", threadID)); err != nil {
		return err
	}

	var emitErr error
	res, err := s.runner.Run(ctx, msgs, func(m *schema.Message) {
		if emitErr != nil {
			return
		}
		msgs = append(msgs, m)
		if emitErr = emit(state(msgs, "", threadID)); emitErr != nil {
			cancel()
		}
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("assistant: streamed turn failed", "thread_id", threadID, "error", err)
		}
		return err
	}
	return emit(state(msgs, res.Text, threadID))
}

// prepare builds the turn's opening transcript: the system prompt, then the
// rendered user message when it is not blank.
func (s *Service) prepare(input string) []*schema.Message {
	system, user := s.prompts.Render(input)
	msgs := []*schema.Message{schema.SystemMessage(system)}
	if user != "" {
		human := schema.UserMessage(user)
		human.Extra = map[string]any{rawInputKey: input}
		msgs = append(msgs, human)
	}
	return msgs
}

func state(msgs []*schema.Message, output, threadID string) model.AgentState {
	return model.AgentState{
		Messages:     ToMessages(msgs),
		Output:       output,
		ImagesOutput: []string{},
		ThreadID:     threadID,
	}
}
