package aiengine

import (
	"fmt"
	"sort"

	"cognichoir/pkg/config"
)

// EngineConfig carries everything a factory needs to build one engine.
// The API key is resolved by the caller (from the key manager) and is never
// persisted alongside chatroom data.
type EngineConfig struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url,omitempty"`
}

// EngineFactory builds an engine for one provider variant.
//
// A factory must not fail on a missing API key: it returns an Unconfigured
// stub instead, so bots can exist before their credential does. Returning an
// error is reserved for genuinely invalid configuration.
type EngineFactory interface {
	Create(cfg EngineConfig, sys *config.SystemConfig) (Engine, error)
}

// ErrUnknownEngine is returned by New for engine types nobody registered.
var ErrUnknownEngine = fmt.Errorf("unknown engine type")

var engineRegistry = make(map[string]EngineFactory)

// RegisterEngine adds a factory to the global registry. Called from the
// provider packages' init().
func RegisterEngine(name string, factory EngineFactory) {
	engineRegistry[name] = factory
}

// GetEngineFactory retrieves a registered factory by engine type.
func GetEngineFactory(name string) (EngineFactory, bool) {
	f, ok := engineRegistry[name]
	return f, ok
}

// EngineTypes lists the registered engine type identifiers, sorted.
func EngineTypes() []string {
	names := make([]string, 0, len(engineRegistry))
	for name := range engineRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds an engine from config via the registry. A nil sys is replaced
// with defaults, so factories always receive a usable system config.
func New(cfg EngineConfig, sys *config.SystemConfig) (Engine, error) {
	factory, ok := GetEngineFactory(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Type)
	}
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	return factory.Create(cfg, sys)
}
