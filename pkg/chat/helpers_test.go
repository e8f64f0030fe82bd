package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/apikey"
	"cognichoir/pkg/config"
)

// stubEngine answers with a canned reply and needs no credentials, so room
// tests never reach a real provider.
type stubEngine struct {
	model string
	reply string
}

func (s *stubEngine) GenerateResponse(ctx context.Context, roleName, systemPrompt string, history []aiengine.Message) string {
	if s.reply != "" {
		return s.reply
	}
	return fmt.Sprintf("%s heard %d messages", roleName, len(history))
}

func (s *stubEngine) RequiresAPIKey() bool { return false }
func (s *stubEngine) Type() string         { return "stub" }
func (s *stubEngine) Model() string        { return s.model }

type stubFactory struct{}

func (f *stubFactory) Create(cfg aiengine.EngineConfig, sys *config.SystemConfig) (aiengine.Engine, error) {
	model := cfg.Model
	if model == "" {
		model = "stub-model"
	}
	return &stubEngine{model: model}, nil
}

func init() {
	aiengine.RegisterEngine("stub", &stubFactory{})
}

// newTestManager builds a manager over a throwaway directory with a
// file-backed key store.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	sys := config.DefaultSystemConfig()
	sys.DataDir = t.TempDir()
	keys := apikey.NewManagerWithFallback(sys.DataDir)
	m, err := NewManager(sys, keys)
	require.NoError(t, err)
	return m
}
