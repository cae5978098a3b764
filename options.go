package luma

import (
	"log/slog"
	"net/http"

	"github.com/cloudwego/eino/components/model"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all overrides after applying defaults.
// Unexported: callers use the With* functions.
type resolvedOptions struct {
	port       int
	catalogURL string
	logger     *slog.Logger
	version    string
	chatModel  model.ToolCallingChatModel
	httpClient *http.Client
}

// WithPort overrides the TCP port from config (LUMA_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithCatalogURL overrides the Worldview layer catalog location (LUMA_CATALOG_URL env var).
func WithCatalogURL(url string) Option {
	return func(o *resolvedOptions) { o.catalogURL = url }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithChatModel replaces the OpenAI/Azure chat model built from config.
// The model must support tool binding.
func WithChatModel(m model.ToolCallingChatModel) Option {
	return func(o *resolvedOptions) { o.chatModel = m }
}

// WithHTTPClient sets the client used for catalog fetches and chat model calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *resolvedOptions) { o.httpClient = c }
}
