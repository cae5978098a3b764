// Package server implements the HTTP API for Luma.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/luma-agent/luma/internal/assistant"
	"github.com/luma-agent/luma/internal/ratelimit"
	"github.com/luma-agent/luma/internal/worldview"
)

// Server is the Luma HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Assistant, Catalog, Limiter, MCPServer, UIFS.
type ServerConfig struct {
	// Required dependencies.
	Resolver *worldview.Resolver
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	Assistant *assistant.Service
	Catalog   worldview.CatalogSource
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer
	UIFS      fs.FS // Bundled chat client served at /.

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := NewHandlers(HandlersDeps{
		Assistant:           cfg.Assistant,
		Resolver:            cfg.Resolver,
		Catalog:             cfg.Catalog,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	// Agent turns cost model tokens; they are limited per client IP.
	agentRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, reqIDFunc, cfg.Logger)

	mux := http.NewServeMux()

	// Conversational agent (rate limited).
	mux.Handle("POST /api/agent", agentRL(http.HandlerFunc(h.HandleAgent)))
	mux.Handle("GET /api/agent/stream", agentRL(http.HandlerFunc(h.HandleAgentStream)))
	mux.Handle("GET /ws", agentRL(http.HandlerFunc(h.HandleWebSocket)))

	// Direct link resolution and catalog search (no model involved).
	mux.HandleFunc("POST /api/worldview/link", h.HandleWorldviewLink)
	mux.HandleFunc("GET /api/worldview/layers", h.HandleLayerSearch)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	csp := apiCSP
	if cfg.UIFS != nil {
		mux.Handle("/", newSPAHandler(cfg.UIFS))
		csp = uiCSP
		cfg.Logger.Info("ui enabled, serving chat client at /")
	}

	// Middleware chain (outermost executes first):
	// request ID → CORS → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(csp, handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
