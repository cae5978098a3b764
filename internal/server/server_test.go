package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luma-agent/luma/internal/agent"
	"github.com/luma-agent/luma/internal/assistant"
	"github.com/luma-agent/luma/internal/model"
	"github.com/luma-agent/luma/internal/prompts"
	"github.com/luma-agent/luma/internal/ratelimit"
	"github.com/luma-agent/luma/internal/server"
	"github.com/luma-agent/luma/internal/worldview"
)

const testCatalogJSON = `{
  "layers": {
    "MODIS_Terra_Aerosol": {"title": "Aerosol Optical Depth"},
    "MODIS_Terra_Thermal_Anomalies_Night": {"title": "Fires and Thermal Anomalies (Night)"},
    "VIIRS_SNPP_Thermal_Anomalies_375m_Night": {"title": "Fires and Thermal Anomalies (Night, 375m)"},
    "MODIS_Terra_Snow_Cover": {"title": "Snow Cover"}
  }
}`

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type staticCatalog struct {
	result worldview.CatalogResult
}

func (s staticCatalog) Fetch(context.Context) worldview.CatalogResult { return s.result }

// scriptedRunner answers every turn with one tool exchange and a reply.
type scriptedRunner struct {
	err error
}

func (s *scriptedRunner) Run(ctx context.Context, transcript []*schema.Message, observe agent.Observer) (agent.Result, error) {
	if s.err != nil {
		return agent.Result{}, s.err
	}
	link := "https://worldview.earthdata.nasa.gov/?l=MODIS_Terra_CorrectedReflectance_TrueColor&t=2026-10-18T00:00:00Z&v=-180,-90,180,90"
	added := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: worldview.ToolName, Arguments: `{"query":"true color"}`},
		}}),
		schema.ToolMessage(link, "call-1", schema.WithToolName(worldview.ToolName)),
		schema.AssistantMessage("Open "+link, nil),
	}
	for _, m := range added {
		if err := ctx.Err(); err != nil {
			return agent.Result{}, err
		}
		if observe != nil {
			observe(m)
		}
	}
	return agent.Result{Text: added[2].Content, Messages: added, Rounds: 1}, nil
}

type testOptions struct {
	catalog worldview.CatalogResult
	runner  assistant.Runner
	noModel bool
	limiter ratelimit.Limiter
	maxBody int64
	origins []string
}

func newTestServer(t *testing.T, opts testOptions) *server.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := staticCatalog{result: opts.catalog}
	resolver := worldview.NewResolver(src, logger, worldview.WithClock(func() time.Time { return testNow }))

	var svc *assistant.Service
	if !opts.noModel {
		runner := opts.runner
		if runner == nil {
			runner = &scriptedRunner{}
		}
		svc = assistant.New(runner, prompts.Default(), logger)
	}

	maxBody := opts.maxBody
	if maxBody == 0 {
		maxBody = 1 << 20
	}
	return server.New(server.ServerConfig{
		Resolver:            resolver,
		Catalog:             src,
		Assistant:           svc,
		Limiter:             opts.limiter,
		Logger:              logger,
		Version:             "test",
		MaxRequestBodyBytes: maxBody,
		CORSAllowedOrigins:  opts.origins,
	})
}

func availableCatalog(t *testing.T) worldview.CatalogResult {
	t.Helper()
	cat, err := worldview.ParseCatalog([]byte(testCatalogJSON))
	require.NoError(t, err)
	return worldview.CatalogResult{Catalog: cat}
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var apiErr model.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "test", resp.Version)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestWorldviewLinkOffline(t *testing.T) {
	h := newTestServer(t, testOptions{catalog: worldview.Unavailable}).Handler()

	rec := do(t, h, http.MethodPost, "/api/worldview/link", `{"query":"fires in California"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://worldview.earthdata.nasa.gov/?"+
		"l=MODIS_Terra_CorrectedReflectance_TrueColor,MODIS_Terra_Thermal_Anomalies_Night"+
		"&t=2026-10-18T00:00:00Z&v=-130,32,-114,43", resp.URL)
	assert.Equal(t, []string{
		"MODIS_Terra_CorrectedReflectance_TrueColor",
		"MODIS_Terra_Thermal_Anomalies_Night",
	}, resp.Layers)
	assert.Equal(t, "2026-10-18T00:00:00Z", resp.Date)
	assert.Equal(t, "-130,32,-114,43", resp.BBox)
}

func TestWorldviewLinkExplicit(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/worldview/link",
		`{"layers":["A","B","A"],"date":"2024-05-01","bbox":"1,2,3,4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://worldview.earthdata.nasa.gov/?l=A,B&t=2024-05-01T00:00:00Z&v=1,2,3,4", resp.URL)
}

func TestWorldviewLinkValidation(t *testing.T) {
	h := newTestServer(t, testOptions{maxBody: 64}).Handler()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty object", `{}`, http.StatusBadRequest},
		{"unknown field", `{"query":"x","zoom":3}`, http.StatusBadRequest},
		{"malformed", `{"query":`, http.StatusBadRequest},
		{"too large", `{"query":"` + strings.Repeat("a", 200) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/worldview/link", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			apiErr := decodeError(t, rec)
			assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
			assert.NotEmpty(t, apiErr.Meta.RequestID)
		})
	}
}

func TestLayerSearch(t *testing.T) {
	h := newTestServer(t, testOptions{catalog: availableCatalog(t)}).Handler()

	rec := do(t, h, http.MethodGet, "/api/worldview/layers?q=fires&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data []model.LayerMatch `json:"data"`
		Meta model.ResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "MODIS_Terra_Thermal_Anomalies_Night", resp.Data[0].ID)
	assert.Equal(t, "VIIRS_SNPP_Thermal_Anomalies_375m_Night", resp.Data[1].ID)
	assert.Positive(t, resp.Data[0].Score)
	assert.NotEmpty(t, resp.Meta.RequestID)
}

func TestLayerSearchErrors(t *testing.T) {
	offline := newTestServer(t, testOptions{catalog: worldview.Unavailable}).Handler()
	rec := do(t, offline, http.MethodGet, "/api/worldview/layers?q=fires", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, model.ErrCodeUnavailable, decodeError(t, rec).Error.Code)

	h := newTestServer(t, testOptions{catalog: availableCatalog(t)}).Handler()
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/worldview/layers", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/worldview/layers?q=x&limit=0", "").Code)
}

func TestAgentInvoke(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/agent", `{"input":"show me true color","thread_id":"thread-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state model.AgentState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "thread-1", state.ThreadID)
	assert.Contains(t, state.Output, "https://worldview.earthdata.nasa.gov/?")
	assert.Equal(t, []string{}, state.ImagesOutput)
	require.Len(t, state.Messages, 5)
	assert.Equal(t, model.MessageSystem, state.Messages[0].Type)
	assert.Equal(t, model.MessageHuman, state.Messages[1].Type)
	assert.Equal(t, model.MessageTool, state.Messages[3].Type)
}

func TestAgentInvokeWireShape(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/agent", `{"input":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"messages", "output", "images_output", "thread_id"} {
		assert.Contains(t, raw, key)
	}
	msg := raw["messages"].([]any)[0].(map[string]any)
	for _, key := range []string{"type", "content", "additional_kwargs", "response_metadata"} {
		assert.Contains(t, msg, key)
	}
}

func TestAgentWithoutModel(t *testing.T) {
	h := newTestServer(t, testOptions{noModel: true}).Handler()

	for _, target := range []string{"/api/agent", "/api/agent/stream?input=x", "/ws"} {
		method := http.MethodGet
		body := ""
		if target == "/api/agent" {
			method, body = http.MethodPost, `{"input":"x"}`
		}
		rec := do(t, h, method, target, body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestAgentModelFailure(t *testing.T) {
	h := newTestServer(t, testOptions{runner: &scriptedRunner{err: errors.New("upstream 500")}}).Handler()

	rec := do(t, h, http.MethodPost, "/api/agent", `{"input":"x"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, model.ErrCodeUnavailable, decodeError(t, rec).Error.Code)
}

func TestAgentInputTooLong(t *testing.T) {
	h := newTestServer(t, testOptions{maxBody: 64 << 10}).Handler()

	body, err := json.Marshal(model.AgentRequest{Input: strings.Repeat("x", model.MaxInputLen+1)})
	require.NoError(t, err)
	rec := do(t, h, http.MethodPost, "/api/agent", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" || strings.HasPrefix(block, ":") {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				ev.name = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				ev.data = v
			}
		}
		events = append(events, ev)
	}
	return events
}

func TestAgentStream(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/agent/stream?input=true+color&thread_id=t-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	// prepared + three appended messages + final, then done
	require.Len(t, events, 6)
	for _, ev := range events[:5] {
		assert.Equal(t, "update", ev.name)
		var st model.AgentState
		require.NoError(t, json.Unmarshal([]byte(ev.data), &st))
		assert.Equal(t, "t-9", st.ThreadID)
	}
	assert.Equal(t, sseEvent{name: "done", data: ""}, events[5])

	var final model.AgentState
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &final))
	assert.Contains(t, final.Output, "worldview.earthdata.nasa.gov")
}

func TestAgentStreamRequiresInput(t *testing.T) {
	h := newTestServer(t, testOptions{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/agent/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An empty value is accepted.
	rec = do(t, h, http.MethodGet, "/api/agent/stream?input=", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebSocketMirror(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, testOptions{}).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// Two turns on one connection.
	for turn := 0; turn < 2; turn++ {
		require.NoError(t, conn.WriteJSON(model.AgentRequest{Input: "true color", ThreadID: "ws-1"}))

		var states []model.AgentState
		for {
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			var probe map[string]any
			require.NoError(t, json.Unmarshal(data, &probe))
			if probe["event"] == "done" {
				break
			}
			var st model.AgentState
			require.NoError(t, json.Unmarshal(data, &st))
			states = append(states, st)
		}
		require.Len(t, states, 5, "turn %d", turn)
		assert.Equal(t, "ws-1", states[4].ThreadID)
		assert.NotEmpty(t, states[4].Output)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, testOptions{origins: []string{"http://localhost:5173"}}).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testOptions{origins: []string{"http://localhost:5173"}}).Handler()

	preflight := httptest.NewRequest(http.MethodOptions, "/api/agent", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	foreign := httptest.NewRequest(http.MethodGet, "/health", nil)
	foreign.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, foreign)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAgentRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 1)
	defer func() { _ = limiter.Close() }()
	h := newTestServer(t, testOptions{limiter: limiter}).Handler()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/agent", bytes.NewBufferString(`{"input":"x"}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, send().Code)

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, model.ErrCodeRateLimited, apiErr.Error.Code)
	assert.NotEmpty(t, apiErr.Meta.RequestID)

	// Link resolution is not limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/worldview/link", `{"query":"snow"}`).Code)
	}
}
