package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luma-agent/luma/internal/model"
)

// ---- AgentRequest --------------------------------------------------------

func TestAgentRequest_Validate(t *testing.T) {
	assert.NoError(t, model.AgentRequest{Input: "fires in california"}.Validate())
	assert.NoError(t, model.AgentRequest{}.Validate(), "empty input is allowed")
	assert.NoError(t, model.AgentRequest{Input: strings.Repeat("x", model.MaxInputLen)}.Validate(), "at the limit should pass")

	err := model.AgentRequest{Input: strings.Repeat("x", model.MaxInputLen+1)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

// ---- LinkRequest ---------------------------------------------------------

func TestLinkRequest_Validate(t *testing.T) {
	assert.NoError(t, model.LinkRequest{Query: "smoke"}.Validate())
	assert.NoError(t, model.LinkRequest{Layers: []string{"A"}}.Validate(), "layers alone are enough")

	err := model.LinkRequest{Query: "   "}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	err = model.LinkRequest{Query: strings.Repeat("x", model.MaxInputLen+1)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

// ---- Wire format ---------------------------------------------------------

func TestAgentState_JSONShape(t *testing.T) {
	state := model.AgentState{
		Messages: []model.Message{{
			Type:             model.MessageAI,
			Content:          "here you go",
			AdditionalKwargs: map[string]any{},
			ResponseMetadata: map[string]any{},
		}},
		Output:       "here you go",
		ImagesOutput: []string{},
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "messages")
	assert.Contains(t, raw, "output")
	assert.Equal(t, []any{}, raw["images_output"], "images_output is always an array")
	assert.NotContains(t, raw, "thread_id", "omitted when empty")

	msg := raw["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "ai", msg["type"])
	assert.Contains(t, msg, "additional_kwargs")
	assert.Contains(t, msg, "response_metadata")
}

func TestAgentRequest_DecodeOptionalThread(t *testing.T) {
	var req model.AgentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"input":"hi"}`), &req))
	assert.Equal(t, "hi", req.Input)
	assert.Empty(t, req.ThreadID)
}
