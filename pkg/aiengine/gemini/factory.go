package gemini

import (
	"time"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Factory handles creation of Gemini engines.
type Factory struct{}

// Create implements aiengine.EngineFactory. A missing API key yields an
// Unconfigured stub instead of an error so the owning bot stays usable.
func (f *Factory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	if cfg.APIKey == "" {
		return aiengine.NewUnconfigured("gemini", model, "Gemini API key not configured."), nil
	}

	timeout := time.Duration(sys.EngineTimeoutMs) * time.Millisecond
	client, err := NewClient(cfg.APIKey, model, timeout)
	if err != nil {
		return aiengine.NewUnconfigured("gemini", model, err.Error()), nil
	}
	return client, nil
}

func init() {
	aiengine.RegisterEngine("gemini", &Factory{})
}
