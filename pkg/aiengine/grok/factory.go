// Package grok registers the xAI Grok engine. Grok exposes an
// OpenAI-compatible API, so the engine itself is the shared
// openaieng client pointed at the xAI endpoint.
package grok

import (
	"time"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/aiengine/openaieng"
	"cognichoir/pkg/config"
)

const defaultModel = "grok-3-latest"

// Factory handles creation of Grok engines.
type Factory struct{}

// Create implements aiengine.EngineFactory.
func (f *Factory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	if cfg.APIKey == "" {
		return aiengine.NewUnconfigured("grok", model, "Grok API key not configured."), nil
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sys.GrokBaseURL
	}

	timeout := time.Duration(sys.EngineTimeoutMs) * time.Millisecond
	return openaieng.NewClient("grok", cfg.APIKey, model, baseURL, timeout), nil
}

func init() {
	aiengine.RegisterEngine("grok", &Factory{})
}
