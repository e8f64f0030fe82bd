package chat

import (
	"context"
	"fmt"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Bot binds a role name to one engine instance plus a system prompt. The
// engine is exclusively owned by the bot and rebuilt whenever its
// configuration changes; it holds no reference back to the bot.
//
// A Bot has no lock of its own. Bots owned by a chatroom are mutated only
// while the room lock is held, and readers that leave the lock (persistence,
// response generation) work from value snapshots taken under it.
type Bot struct {
	RoleName     string
	EngineType   string
	ModelName    string
	SystemPrompt string

	engine aiengine.Engine
}

// NewBot constructs a bot and its engine. A missing API key does not fail
// construction: the factory hands back a degraded engine that answers every
// call with an error string, so bots can exist before their key does. An
// unknown engine type is a hard error.
func NewBot(roleName, engineType, modelName, systemPrompt, apiKey string, sys *config.SystemConfig) (*Bot, error) {
	if roleName == "" {
		return nil, fmt.Errorf("bot: %w", ErrEmptyName)
	}

	engine, err := aiengine.New(aiengine.EngineConfig{
		Type:   engineType,
		Model:  modelName,
		APIKey: apiKey,
	}, sys)
	if err != nil {
		return nil, fmt.Errorf("bot %q: %w", roleName, err)
	}

	return &Bot{
		RoleName:     roleName,
		EngineType:   engineType,
		ModelName:    engine.Model(),
		SystemPrompt: systemPrompt,
		engine:       engine,
	}, nil
}

// GenerateResponse delegates to the engine and wraps the resulting text as a
// message stamped with the bot's role name and the current time. It does not
// append to any chatroom; that is the caller's job.
func (b *Bot) GenerateResponse(ctx context.Context, history []aiengine.Message) aiengine.Message {
	text := b.engine.GenerateResponse(ctx, b.RoleName, b.SystemPrompt, history)
	return aiengine.NewMessage(b.RoleName, text)
}

// SetEngine rebuilds the engine with a new configuration. On failure the bot
// keeps its previous engine untouched.
func (b *Bot) SetEngine(engineType, modelName, apiKey string, sys *config.SystemConfig) error {
	engine, err := aiengine.New(aiengine.EngineConfig{
		Type:   engineType,
		Model:  modelName,
		APIKey: apiKey,
	}, sys)
	if err != nil {
		return fmt.Errorf("bot %q: %w", b.RoleName, err)
	}

	b.engine = engine
	b.EngineType = engineType
	b.ModelName = engine.Model()
	return nil
}

// SetSystemPrompt replaces the prompt. Takes effect on the next generation;
// past messages are untouched.
func (b *Bot) SetSystemPrompt(text string) {
	b.SystemPrompt = text
}

// Engine exposes the current engine instance.
func (b *Bot) Engine() aiengine.Engine {
	return b.engine
}
