package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Luma server (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual non-streaming requests. Defaults to
	// 2 minutes since a turn may call the model several times.
	Timeout time.Duration
}

// Client is an HTTP client for the Luma API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	// stream has no overall timeout; streams are bounded by ctx.
	stream *http.Client
}

// maxEventBytes bounds one SSE data line; a state carries the whole transcript.
const maxEventBytes = 8 << 20

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("luma: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("luma: invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	streamClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
		streamClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		stream:  streamClient,
	}, nil
}

// Health reports whether the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ask runs one conversational turn and returns the final state. An empty
// threadID lets the server assign one.
func (c *Client) Ask(ctx context.Context, input, threadID string) (*State, error) {
	var resp State
	if err := c.post(ctx, "/api/agent", agentRequest{Input: input, ThreadID: threadID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stream runs one turn over Server-Sent Events, calling fn with every state
// update. It returns after the server's "done" event, when fn returns an
// error, or when ctx ends.
func (c *Client) Stream(ctx context.Context, input, threadID string, fn func(State) error) error {
	params := url.Values{}
	params.Set("input", input)
	if threadID != "" {
		params.Set("thread_id", threadID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agent/stream?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("luma: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("luma: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseErrorResponse(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "done" {
				return nil
			}
			if event == "update" {
				var st State
				if err := json.Unmarshal([]byte(data), &st); err != nil {
					return fmt.Errorf("luma: decode update: %w", err)
				}
				if err := fn(st); err != nil {
					return err
				}
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("luma: read stream: %w", err)
	}
	return fmt.Errorf("luma: stream ended before done")
}

// Link resolves a Worldview link directly, without the chat model.
func (c *Client) Link(ctx context.Context, req LinkRequest) (*Link, error) {
	var resp Link
	if err := c.post(ctx, "/api/worldview/link", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Layers returns catalog layers ranked against query, best first. A
// non-positive limit uses the server default.
func (c *Client) Layers(ctx context.Context, query string, limit int) ([]LayerMatch, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []LayerMatch
	if err := c.get(ctx, "/api/worldview/layers?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("luma: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("luma: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("luma: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("luma: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("luma: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the { "data": ... } envelope where the endpoint uses one.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("luma: decode response: %w", err)
	}
	if envelope.Data == nil {
		return json.Unmarshal(bodyBytes, dest)
	}
	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
