// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64    // Maximum request body size in bytes.
	CORSAllowedOrigins  []string // Exact origins allowed to call the API from a browser.

	// Worldview settings.
	CatalogURL      string
	ViewerURL       string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration // 0 fetches the catalog on every resolution.

	// Agent settings.
	MaxToolRounds int
	PromptsDir    string // Empty uses the built-in prompts.

	// Chat model settings. Azure is used when AzureEndpoint is set.
	Model           string
	Temperature     float64
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	APIVersion      string

	// Rate limiting for the agent endpoints, per client IP.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	str := envStr
	integer := func(key string, def int) int {
		v, err := envInt(key, def)
		errs = append(errs, err)
		return v
	}
	float := func(key string, def float64) float64 {
		v, err := envFloat(key, def)
		errs = append(errs, err)
		return v
	}
	boolean := func(key string, def bool) bool {
		v, err := envBool(key, def)
		errs = append(errs, err)
		return v
	}
	duration := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		errs = append(errs, err)
		return v
	}

	cfg := Config{
		Port:                integer("LUMA_PORT", 8080),
		ReadTimeout:         duration("LUMA_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        duration("LUMA_WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBodyBytes: int64(integer("LUMA_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
		CORSAllowedOrigins:  envList("LUMA_CORS_ALLOWED_ORIGINS", DefaultCORSOrigins),
		CatalogURL:          str("LUMA_CATALOG_URL", "https://worldview.earthdata.nasa.gov/config/wv.json"),
		ViewerURL:           str("LUMA_VIEWER_URL", "https://worldview.earthdata.nasa.gov/"),
		CatalogTimeout:      duration("LUMA_CATALOG_TIMEOUT", 10*time.Second),
		CatalogCacheTTL:     duration("LUMA_CATALOG_CACHE_TTL", 0),
		MaxToolRounds:       integer("LUMA_MAX_TOOL_ROUNDS", 3),
		PromptsDir:          str("LUMA_PROMPTS_DIR", ""),
		Model:               str("MODEL", "gpt-4o-mini"),
		Temperature:         float("TEMPERATURE", 0),
		OpenAIAPIKey:        str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       str("OPENAI_BASE_URL", ""),
		AzureAPIKey:         str("AZURE_OPENAI_API_KEY", ""),
		AzureEndpoint:       str("AZURE_OPENAI_ENDPOINT", ""),
		AzureDeployment:     str("AZURE_OPENAI_DEPLOYMENT_NAME", ""),
		APIVersion:          str("OPENAI_API_VERSION", "2024-06-01"),
		RateLimitEnabled:    boolean("LUMA_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        float("LUMA_RATE_LIMIT_RPS", 2),
		RateLimitBurst:      integer("LUMA_RATE_LIMIT_BURST", 10),
		OTELEndpoint:        str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         str("OTEL_SERVICE_NAME", "luma"),
		LogLevel:            str("LUMA_LOG_LEVEL", "info"),
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that values are usable. Model credentials are not
// required here: the link resolver and MCP surface work without them.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: LUMA_PORT must be between 1 and 65535"))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("config: LUMA_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if c.CatalogURL == "" {
		errs = append(errs, fmt.Errorf("config: LUMA_CATALOG_URL is required"))
	}
	if c.CatalogTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: LUMA_CATALOG_TIMEOUT must be positive"))
	}
	if c.CatalogCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("config: LUMA_CATALOG_CACHE_TTL must not be negative"))
	}
	if c.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("config: LUMA_MAX_TOOL_ROUNDS must not be negative"))
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		errs = append(errs, fmt.Errorf("config: LUMA_RATE_LIMIT_RPS and LUMA_RATE_LIMIT_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// UseAzure reports whether the chat model should target Azure OpenAI.
func (c Config) UseAzure() bool {
	return c.AzureEndpoint != ""
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
