package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "cognichoir/pkg/aiengine/autoload" // Register engines
	"cognichoir/pkg/api"
	"cognichoir/pkg/apikey"
	"cognichoir/pkg/chat"
	"cognichoir/pkg/config"
	"cognichoir/pkg/monitor"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	// --- 0. Load configuration ---
	cfg, sys, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config.json, using empty config", "error", err)
		cfg = &config.Config{}
	}

	monitor.SetupSlog(sys.LogLevel)
	slog.Info("==========================================")
	slog.Info("CogniChoir core starting", "data_dir", sys.DataDir)

	// --- 1. Credential stores ---
	keys := buildKeyManager(sys)
	serverKeys := apikey.NewServerKeyManager(keys, sys.DataDir)

	// --- 2. Chatroom registry ---
	rooms, err := chat.NewManager(sys, keys)
	if err != nil {
		slog.Error("Failed to init chatroom manager", "error", err)
		os.Exit(1)
	}
	templates := chat.NewBotTemplateManager(sys.DataDir)
	slog.Info("Chatrooms loaded", "count", len(rooms.List()), "templates", len(templates.List()))

	// --- 3. Monitors: CLI transcript mirror plus the local API surface ---
	monitors := monitor.Fanout{monitor.NewCLIMonitor()}
	if len(cfg.API) > 0 {
		var apiCfg api.ServerConfig
		if err := json.Unmarshal(cfg.API, &apiCfg); err != nil {
			slog.Error("Invalid api config section", "error", err)
		} else if apiCfg.Port > 0 {
			monitors = append(monitors, api.NewServer(apiCfg, rooms, serverKeys))
		}
	}
	rooms.SetMonitor(monitors)
	if err := monitors.Start(); err != nil {
		slog.Error("Failed to start monitors", "error", err)
		os.Exit(1)
	}

	// --- 4. Live reload of system.json log level ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for path := range config.Watch(ctx, "system.json") {
			next := config.LoadSystemConfig(path)
			monitor.SetupSlog(next.LogLevel)
			slog.Info("Reloaded system config", "log_level", next.LogLevel)
		}
	}()

	// --- 5. Wait for shutdown signal ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Received shutdown signal. Stopping services...")
	cancel()
	if err := monitors.Stop(); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
	slog.Info("Bye!")
}

// buildKeyManager selects the credential store. With a master password in
// the environment the JSON fallback file is sealed; the password is first
// verified against master_key.json, or enrolled there on first use.
func buildKeyManager(sys *config.SystemConfig) *apikey.Manager {
	password := os.Getenv("COGNICHOIR_MASTER_PASSWORD")
	if password == "" {
		return apikey.NewManager(sys.DataDir)
	}

	pm := apikey.NewPasswordManager(sys.DataDir)
	if pm.HasMasterPassword() {
		if !pm.VerifyMasterPassword(password) {
			slog.Error("Master password verification failed")
			os.Exit(1)
		}
	} else if err := pm.SetMasterPassword(password); err != nil {
		slog.Error("Failed to set master password", "error", err)
		os.Exit(1)
	}

	keys, err := apikey.NewManagerWithMasterPassword(sys.DataDir, password)
	if err != nil {
		slog.Error("Failed to init credential store", "error", err)
		os.Exit(1)
	}
	return keys
}
