package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/luma-agent/luma/internal/assistant"
	"github.com/luma-agent/luma/internal/model"
	"github.com/luma-agent/luma/internal/worldview"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	assistant           *assistant.Service
	resolver            *worldview.Resolver
	catalog             worldview.CatalogSource
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	allowedOrigins      []string
	keepalive           time.Duration
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Assistant may be nil when no chat model is configured; the agent
// endpoints then answer 503.
type HandlersDeps struct {
	Assistant           *assistant.Service
	Resolver            *worldview.Resolver
	Catalog             worldview.CatalogSource
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	AllowedOrigins      []string
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		assistant:           d.Assistant,
		resolver:            d.Resolver,
		catalog:             d.Catalog,
		logger:              logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		allowedOrigins:      d.AllowedOrigins,
		keepalive:           15 * time.Second,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeRawJSON(w, http.StatusOK, model.HealthResponse{
		OK:      true,
		Version: h.version,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleAgent handles POST /api/agent: one full turn, answered with the
// final state.
func (h *Handlers) HandleAgent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w, r) {
		return
	}

	var req model.AgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	state, err := h.assistant.Invoke(r.Context(), req.Input, req.ThreadID)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, state)
}

// HandleAgentStream handles GET /api/agent/stream?input=&thread_id=. Each
// state is sent as an "update" event, followed by an empty "done" event.
func (h *Handlers) HandleAgentStream(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w, r) {
		return
	}

	q := r.URL.Query()
	if !q.Has("input") {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "input query parameter is required")
		return
	}
	req := model.AgentRequest{Input: q.Get("input"), ThreadID: q.Get("thread_id")}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	stream, err := newSSEWriter(w, h.keepalive)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}
	defer stream.Close()

	err = h.assistant.Stream(r.Context(), req.Input, req.ThreadID, func(state model.AgentState) error {
		return stream.Event("update", state)
	})
	if err != nil {
		// Headers are already sent; the client sees the stream end early.
		if !errors.Is(err, context.Canceled) {
			h.logger.Warn("agent stream ended early",
				"error", err,
				"request_id", RequestIDFromContext(r.Context()),
			)
		}
		return
	}
	_ = stream.Done()
}

// HandleWorldviewLink handles POST /api/worldview/link: direct link
// resolution without a chat model.
func (h *Handlers) HandleWorldviewLink(w http.ResponseWriter, r *http.Request) {
	var req model.LinkRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	view := h.resolver.ResolveView(r.Context(), worldview.Request{
		Query:  strings.TrimSpace(req.Query),
		Date:   req.Date,
		BBox:   req.BBox,
		Layers: req.Layers,
	})
	writeRawJSON(w, http.StatusOK, model.LinkResponse{
		URL:    view.URL(h.resolver.ViewerURL()),
		Layers: view.Layers,
		Date:   view.Date,
		BBox:   view.BBox,
	})
}

const (
	defaultLayerMatches = 10
	maxLayerMatches     = 50
)

// HandleLayerSearch handles GET /api/worldview/layers?q=&limit=: catalog
// layers ranked by relevance to q, best first.
func (h *Handlers) HandleLayerSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phrase := strings.ToLower(strings.TrimSpace(q.Get("q")))
	if phrase == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "q is required")
		return
	}
	limit := defaultLayerMatches
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLayerMatches)
	}

	res := worldview.Unavailable
	if h.catalog != nil {
		res = h.catalog.Fetch(r.Context())
	}
	if !res.Available() {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "layer catalog unavailable")
		return
	}

	candidates := worldview.ScoreAll(res.Catalog, phrase)
	// Stable: equal scores keep catalog order.
	slices.SortStableFunc(candidates, func(a, b worldview.ScoredCandidate) int {
		return b.Score - a.Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]model.LayerMatch, 0, len(candidates))
	for _, c := range candidates {
		meta, _ := res.Catalog.Get(c.LayerID)
		matches = append(matches, model.LayerMatch{ID: c.LayerID, Title: meta.Title, Score: c.Score})
	}
	writeJSON(w, r, http.StatusOK, matches)
}

// requireAssistant answers 503 when no chat model is configured.
func (h *Handlers) requireAssistant(w http.ResponseWriter, r *http.Request) bool {
	if h.assistant != nil {
		return true
	}
	writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable,
		"no chat model configured: set OPENAI_API_KEY or AZURE_OPENAI_ENDPOINT")
	return false
}

func (h *Handlers) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, r, http.StatusGatewayTimeout, model.ErrCodeUnavailable, "agent turn timed out")
		return
	}
	writeError(w, r, http.StatusBadGateway, model.ErrCodeUnavailable, "agent turn failed")
}
