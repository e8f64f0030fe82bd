package ollama

import (
	"time"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Factory handles creation of Ollama engines.
type Factory struct{}

// Create implements aiengine.EngineFactory. No API key is involved, but a
// bad URL still degrades to an Unconfigured stub rather than failing the
// owning bot.
func (f *Factory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sys.OllamaDefaultURL
	}

	timeout := time.Duration(sys.EngineTimeoutMs) * time.Millisecond
	client, err := NewClient(model, baseURL, timeout)
	if err != nil {
		return aiengine.NewUnconfigured("ollama", model, err.Error()), nil
	}
	return client, nil
}

func init() {
	aiengine.RegisterEngine("ollama", &Factory{})
}
