package client

import (
	"encoding/json"
	"time"
)

// State is a conversation turn as returned by the agent endpoints.
type State struct {
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

// LinkRequest asks for a Worldview link without a chat model. At least one
// of Query or Layers is required.
type LinkRequest struct {
	Query  string   `json:"query,omitempty"`
	Date   string   `json:"date,omitempty"`
	BBox   string   `json:"bbox,omitempty"`
	Layers []string `json:"layers,omitempty"`
}

// Link is a resolved Worldview view and its URL.
type Link struct {
	URL    string   `json:"url"`
	Layers []string `json:"layers"`
	Date   string   `json:"date"`
	BBox   string   `json:"bbox"`
}

// LayerMatch is one catalog layer ranked against a search phrase.
type LayerMatch struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// Health is the server health report.
type Health struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
}

type agentRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"thread_id,omitempty"`
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		RequestID string    `json:"request_id"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"meta"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
