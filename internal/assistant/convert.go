package assistant

import (
	"github.com/cloudwego/eino/schema"

	"github.com/luma-agent/luma/internal/model"
)

// ToMessages converts a transcript to its API representation.
func ToMessages(msgs []*schema.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, toMessage(m))
	}
	return out
}

func toMessage(m *schema.Message) model.Message {
	msg := model.Message{
		Content:          m.Content,
		AdditionalKwargs: map[string]any{},
		ResponseMetadata: map[string]any{},
	}

	switch m.Role {
	case schema.System:
		msg.Type = model.MessageSystem
	case schema.User:
		msg.Type = model.MessageHuman
		if raw, ok := m.Extra[rawInputKey]; ok {
			msg.AdditionalKwargs[rawInputKey] = raw
		}
	case schema.Assistant:
		msg.Type = model.MessageAI
		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]any, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Function.Name,
						"arguments": tc.Function.Arguments,
					},
				})
			}
			msg.AdditionalKwargs["tool_calls"] = calls
		}
	case schema.Tool:
		msg.Type = model.MessageTool
		msg.AdditionalKwargs["tool_call_id"] = m.ToolCallID
		if m.ToolName != "" {
			msg.AdditionalKwargs["name"] = m.ToolName
		}
	default:
		msg.Type = string(m.Role)
	}

	if rm := m.ResponseMeta; rm != nil {
		if rm.FinishReason != "" {
			msg.ResponseMetadata["finish_reason"] = rm.FinishReason
		}
		if u := rm.Usage; u != nil {
			msg.ResponseMetadata["token_usage"] = map[string]any{
				"prompt_tokens":     u.PromptTokens,
				"completion_tokens": u.CompletionTokens,
				"total_tokens":      u.TotalTokens,
			}
		}
	}
	return msg
}
