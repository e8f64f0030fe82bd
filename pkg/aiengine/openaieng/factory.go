package openaieng

import (
	"time"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Factory handles creation of OpenAI engines.
type Factory struct{}

// Create implements aiengine.EngineFactory.
func (f *Factory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	if cfg.APIKey == "" {
		return aiengine.NewUnconfigured("openai", model, "OpenAI API key not configured."), nil
	}

	timeout := time.Duration(sys.EngineTimeoutMs) * time.Millisecond
	return NewClient("openai", cfg.APIKey, model, cfg.BaseURL, timeout), nil
}

func init() {
	aiengine.RegisterEngine("openai", &Factory{})
}
