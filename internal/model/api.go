// Package model defines the HTTP API's request and response shapes.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxInputLen bounds a single user turn.
const MaxInputLen = 16 * 1024 // 16 KB

// APIResponse is the standard response envelope for JSON API responses that
// are not part of the agent wire format.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every envelope.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// AgentRequest is the body of POST /api/agent and the frame a WebSocket
// client sends.
type AgentRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Validate checks the input length. Empty input is allowed and yields a
// turn with only the system prompt.
func (r AgentRequest) Validate() error {
	if len(r.Input) > MaxInputLen {
		return fmt.Errorf("input exceeds maximum length of %d bytes", MaxInputLen)
	}
	return nil
}

// AgentState is the state of a conversation turn as returned by the agent
// endpoints and streamed as SSE "update" events.
type AgentState struct {
	Messages     []Message `json:"messages"`
	Output       string    `json:"output"`
	ImagesOutput []string  `json:"images_output"`
	ThreadID     string    `json:"thread_id,omitempty"`
}

// Message is one transcript entry. Type is "system", "human", "ai" or "tool".
type Message struct {
	Type             string         `json:"type"`
	Content          string         `json:"content"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	ResponseMetadata map[string]any `json:"response_metadata"`
}

// Message types.
const (
	MessageSystem = "system"
	MessageHuman  = "human"
	MessageAI     = "ai"
	MessageTool   = "tool"
)

// LinkRequest is the body of POST /api/worldview/link.
type LinkRequest struct {
	Query  string   `json:"query"`
	Date   string   `json:"date,omitempty"`
	BBox   string   `json:"bbox,omitempty"`
	Layers []string `json:"layers,omitempty"`
}

// Validate rejects requests that carry nothing to resolve.
func (r LinkRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" && len(r.Layers) == 0 {
		return fmt.Errorf("query or layers is required")
	}
	if len(r.Query) > MaxInputLen {
		return fmt.Errorf("query exceeds maximum length of %d bytes", MaxInputLen)
	}
	return nil
}

// LinkResponse is the response for POST /api/worldview/link.
type LinkResponse struct {
	URL    string   `json:"url"`
	Layers []string `json:"layers"`
	Date   string   `json:"date"`
	BBox   string   `json:"bbox"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Uptime  int64  `json:"uptime_seconds"`
}

// LayerMatch is one result of GET /api/worldview/layers.
type LayerMatch struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}
