// Package llm builds the chat model used by the assistant.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNoCredentials is returned when no API key is configured.
var ErrNoCredentials = errors.New("llm: no API key configured (set OPENAI_API_KEY or AZURE_OPENAI_API_KEY)")

// Config selects the provider and model. Azure OpenAI is used when
// AzureEndpoint is set; the deployment name then stands in for the model.
type Config struct {
	Model           string
	Temperature     float64
	APIKey          string
	BaseURL         string
	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	APIVersion      string
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// ChatModelConfig translates cfg into the OpenAI component's configuration.
func ChatModelConfig(cfg Config) (*openai.ChatModelConfig, error) {
	temp := float32(cfg.Temperature)
	out := &openai.ChatModelConfig{
		Model:       cfg.Model,
		Temperature: &temp,
		Timeout:     cfg.Timeout,
		HTTPClient:  cfg.HTTPClient,
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	if strings.TrimSpace(cfg.AzureEndpoint) != "" {
		key := cfg.AzureAPIKey
		if key == "" {
			key = cfg.APIKey
		}
		if key == "" {
			return nil, ErrNoCredentials
		}
		out.ByAzure = true
		out.APIKey = key
		out.BaseURL = cfg.AzureEndpoint
		out.APIVersion = cfg.APIVersion
		if cfg.AzureDeployment != "" {
			out.Model = cfg.AzureDeployment
		}
		return out, nil
	}

	if cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	out.APIKey = cfg.APIKey
	if cfg.BaseURL != "" {
		out.BaseURL = cfg.BaseURL
	}
	return out, nil
}

// New creates the chat model described by cfg.
func New(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	mc, err := ChatModelConfig(cfg)
	if err != nil {
		return nil, err
	}
	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("llm: create chat model: %w", err)
	}
	return cm, nil
}
