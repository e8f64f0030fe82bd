package config

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the application-level configuration structure. It maps
// directly to config.json and holds business-level settings like default
// models per engine type and the local API server payload.
type Config struct {
	// API contains the local API server configuration in raw JSON format;
	// empty means the server stays disabled.
	API jsoniter.RawMessage `json:"api,omitempty"`
	// DefaultModels maps an engine type identifier (e.g. "gemini") to the
	// model used when a bot is created without an explicit model name.
	DefaultModels map[string]string `json:"default_models,omitempty"`
	// UserName is the sender marker for locally authored messages.
	UserName string `json:"user_name,omitempty"`
}

// SystemConfig defines engine-level technical parameters. These settings are
// stored in system.json and control paths, timeouts and logging rather than
// chat behavior.
type SystemConfig struct {
	// DataDir is the root directory for all persisted state: chatroom files,
	// the fallback key file and bot templates.
	DataDir string `json:"data_dir"`
	// EngineTimeoutMs is the hard cutoff time (in milliseconds) for a single
	// provider call. The context is cancelled when exceeded.
	EngineTimeoutMs int `json:"engine_timeout_ms"`
	// OllamaDefaultURL is the endpoint used for local Ollama engines when a
	// bot does not carry its own base URL.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// GrokBaseURL is the OpenAI-compatible endpoint of xAI's Grok API.
	GrokBaseURL string `json:"grok_base_url"`
	// AzureEndpoint is the Azure OpenAI resource endpoint. Empty means the
	// azure_openai engine type stays unconfigured.
	AzureEndpoint string `json:"azure_endpoint,omitempty"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// ChatroomsDir returns the directory holding per-chatroom JSON files.
func (s *SystemConfig) ChatroomsDir() string {
	return filepath.Join(s.DataDir, "chatrooms")
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with
// hardcoded safe default values. This is used as a fallback when the
// system.json file is missing or corrupt, so startup never depends on it.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDir:          "data",
		EngineTimeoutMs:  120000,
		OllamaDefaultURL: "http://localhost:11434",
		GrokBaseURL:      "https://api.x.ai/v1",
		LogLevel:         "info",
	}
}

// Load reads and parses the JSON configuration files from the current
// working directory. It first attempts to load 'config.json'; if that file
// is missing, it returns an error so the caller can decide to run with an
// empty config. system.json is loaded independently and always succeeds.
func Load() (*Config, *SystemConfig, error) {
	sysCfg := LoadSystemConfig("system.json")

	appPath := "config.json"
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, sysCfg, fmt.Errorf("config file '%s' not found", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, sysCfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, sysCfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, sysCfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg // Parse failed, use defaults
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return cfg
}
