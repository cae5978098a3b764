// Package luma is the public API for embedding the Luma imagery assistant.
//
// Callers construct the server with options and run it until ctx ends:
//
//	app, err := luma.New(
//	    luma.WithVersion(version),
//	    luma.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph is one-way: luma (root) imports internal/*, but
// internal/* never imports luma (root).
package luma

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"


	"github.com/luma-agent/luma/internal/agent"
	"github.com/luma-agent/luma/internal/assistant"
	"github.com/luma-agent/luma/internal/config"
	"github.com/luma-agent/luma/internal/llm"
	"github.com/luma-agent/luma/internal/mcp"
	"github.com/luma-agent/luma/internal/prompts"
	"github.com/luma-agent/luma/internal/ratelimit"
	"github.com/luma-agent/luma/internal/server"
	"github.com/luma-agent/luma/internal/telemetry"
	"github.com/luma-agent/luma/internal/worldview"
	"github.com/luma-agent/luma/ui"
)

// shutdownHTTPTimeout bounds the drain of in-flight requests.
const shutdownHTTPTimeout = 10 * time.Second

// App is the Luma server lifecycle. Construct with New(), run with Run().
type App struct {
	cfg          config.Config
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New reads configuration from the process environment and wires every
// component. It does not read .env files; cmd/luma loads them first.
// Missing model credentials are not fatal: the agent endpoints answer 503
// and the link resolver, layer search and MCP surface keep working.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.catalogURL != "" {
		cfg.CatalogURL = o.catalogURL
	}

	ctx := context.Background()

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     o.version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	catalog := worldview.NewCatalogClient(worldview.CatalogConfig{
		URL:        cfg.CatalogURL,
		Timeout:    cfg.CatalogTimeout,
		CacheTTL:   cfg.CatalogCacheTTL,
		HTTPClient: o.httpClient,
	}, logger)
	resolver := worldview.NewResolver(catalog, logger, worldview.WithViewerURL(cfg.ViewerURL))

	promptSet, err := prompts.Load(cfg.PromptsDir)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	svc, err := newAssistant(ctx, cfg, o, resolver, promptSet, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	uiFS, err := ui.DistFS()
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("ui: %w", err)
	}

	mcpSrv := mcp.New(resolver, catalog, logger, o.version)
	limiter := ratelimit.New(cfg.RateLimitEnabled, cfg.RateLimitRPS, cfg.RateLimitBurst)

	srv := server.New(server.ServerConfig{
		Resolver:            resolver,
		Logger:              logger,
		Assistant:           svc,
		Catalog:             catalog,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		UIFS:                uiFS,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             o.version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      o.version,
	}, nil
}

// newAssistant builds the tool-calling loop around the configured chat
// model. It returns a nil Service when no credentials are configured.
func newAssistant(ctx context.Context, cfg config.Config, o resolvedOptions, resolver *worldview.Resolver, p prompts.Set, logger *slog.Logger) (*assistant.Service, error) {
	chat := o.chatModel
	if chat == nil {
		var err error
		chat, err = llm.New(ctx, llm.Config{
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			AzureAPIKey:     cfg.AzureAPIKey,
			AzureEndpoint:   cfg.AzureEndpoint,
			AzureDeployment: cfg.AzureDeployment,
			APIVersion:      cfg.APIVersion,
			Timeout:         cfg.WriteTimeout,
			HTTPClient:      o.httpClient,
		})
		if errors.Is(err, llm.ErrNoCredentials) {
			logger.Warn("chat model disabled, agent endpoints unavailable", "error", err)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("llm: %w", err)
		}
	}

	registry, err := agent.NewRegistry(ctx, worldview.NewTool(resolver))
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	loop, err := agent.NewLoop(chat, registry,
		agent.WithMaxRounds(cfg.MaxToolRounds),
		agent.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	logger.Info("chat model ready", "model", cfg.Model, "azure", cfg.UseAzure(), "tools", registry.Len())
	return assistant.New(loop, p, logger), nil
}

// Handler returns the root HTTP handler. Useful for tests and for mounting
// Luma under another server.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("luma starting", "version", a.version, "port", a.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains in-flight HTTP requests, then releases the rate limiter
// and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("luma shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	defer cancel()
	var errs []error
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
		errs = append(errs, err)
	}
	if err := a.limiter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.otelShutdown(ctx); err != nil {
		a.logger.Error("telemetry shutdown error", "error", err)
		errs = append(errs, err)
	}

	a.logger.Info("luma stopped")
	return errors.Join(errs...)
}
