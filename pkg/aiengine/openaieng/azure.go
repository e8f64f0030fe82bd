package openaieng

import (
	"time"

	"github.com/openai/openai-go/v3/option"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Azure OpenAI speaks the same chat completions dialect but authenticates
// with an api-key header and scopes every request to an api-version. The
// model field names the deployment, not a raw model identifier.
const azureAPIVersion = "2024-12-01-preview"

// AzureFactory handles creation of Azure OpenAI engines. The endpoint
// comes in through the engine config's BaseURL.
type AzureFactory struct{}

// Create implements aiengine.EngineFactory.
func (f *AzureFactory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	if cfg.Model == "" {
		return aiengine.NewUnconfigured("azure_openai", "", "Azure OpenAI deployment name not configured."), nil
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = sys.AzureEndpoint
	}
	if endpoint == "" {
		return aiengine.NewUnconfigured("azure_openai", cfg.Model, "Azure OpenAI endpoint not configured."), nil
	}
	if cfg.APIKey == "" {
		return aiengine.NewUnconfigured("azure_openai", cfg.Model, "Azure OpenAI API key not configured."), nil
	}

	timeout := time.Duration(sys.EngineTimeoutMs) * time.Millisecond
	client := NewClient("azure_openai", cfg.APIKey, cfg.Model, endpoint, timeout,
		option.WithHeader("api-key", cfg.APIKey),
		option.WithQuery("api-version", azureAPIVersion),
	)
	return client, nil
}

func init() {
	aiengine.RegisterEngine("azure_openai", &AzureFactory{})
}
