package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/config"
)

// Chatroom is a named conversation container owning an ordered list of bots
// (insertion order = display order) and a chronological message list. All
// mutations persist through the owning manager as a side effect; there is no
// explicit save step.
type Chatroom struct {
	name     string
	bots     []*Bot
	messages []aiengine.Message

	mu      sync.RWMutex
	manager *Manager
}

// roomDocument is the on-disk JSON shape of one chatroom. Engines are not
// persisted; bots carry enough configuration to rebuild them, and API keys
// are re-resolved from the key manager at load time.
type roomDocument struct {
	Name     string             `json:"name"`
	Bots     []botDocument      `json:"bots"`
	Messages []aiengine.Message `json:"messages"`
}

// botDocument is the persisted shape of one bot. It is a value copy taken
// under the room lock, so marshaling it later never touches a live Bot.
type botDocument struct {
	RoleName     string `json:"role_name"`
	EngineType   string `json:"engine_type"`
	ModelName    string `json:"model_name"`
	SystemPrompt string `json:"system_prompt"`
}

// NewChatroom creates an empty, detached chatroom. Rooms are normally
// created through a Manager, which attaches itself for persistence.
func NewChatroom(name string) *Chatroom {
	return &Chatroom{name: name}
}

// Name returns the chatroom name. Renames go through the manager so name
// uniqueness stays enforced in one place.
func (c *Chatroom) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Rename changes the chatroom name via the owning manager. Fails with
// ErrNameConflict if the new name collides with another chatroom.
func (c *Chatroom) Rename(newName string) error {
	c.mu.RLock()
	mgr := c.manager
	old := c.name
	c.mu.RUnlock()

	if mgr == nil {
		return ErrDetached
	}
	return mgr.Rename(old, newName)
}

// Clone produces an independent copy of this chatroom under newName via the
// owning manager. Fails with ErrNameConflict if newName is taken.
func (c *Chatroom) Clone(newName string) (*Chatroom, error) {
	c.mu.RLock()
	mgr := c.manager
	name := c.name
	c.mu.RUnlock()

	if mgr == nil {
		return nil, ErrDetached
	}
	return mgr.Clone(name, newName)
}

// -------------------------------------------------------------------------
// Bots
// -------------------------------------------------------------------------

// AddBot constructs a bot and appends it to the room. Fails with
// ErrNameConflict if the role name is already used here; the bot list is
// unchanged on failure.
func (c *Chatroom) AddBot(roleName, engineType, modelName, systemPrompt, apiKey string) (*Bot, error) {
	bot, err := NewBot(roleName, engineType, modelName, systemPrompt, apiKey, c.sysConfig())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.findBotLocked(roleName) != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("bot %q in chatroom %q: %w", roleName, c.name, ErrNameConflict)
	}
	c.bots = append(c.bots, bot)
	doc := c.documentLocked()
	c.mu.Unlock()

	slog.Info("Bot added to chatroom", "room", doc.Name, "bot", roleName, "engine", engineType)
	return bot, c.persist(doc)
}

// RemoveBot removes a bot by role name. The bot's past messages stay in the
// shared history; departure does not redact them.
func (c *Chatroom) RemoveBot(roleName string) error {
	c.mu.Lock()
	idx := -1
	for i, b := range c.bots {
		if b.RoleName == roleName {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("bot %q in chatroom %q: %w", roleName, c.name, ErrNotFound)
	}
	c.bots = append(c.bots[:idx], c.bots[idx+1:]...)
	doc := c.documentLocked()
	c.mu.Unlock()

	slog.Info("Bot removed from chatroom", "room", doc.Name, "bot", roleName)
	return c.persist(doc)
}

// GetBot retrieves a bot by role name.
func (c *Chatroom) GetBot(roleName string) (*Bot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.findBotLocked(roleName)
	return b, b != nil
}

// Bots returns the bots in display order.
func (c *Chatroom) Bots() []*Bot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Bot, len(c.bots))
	copy(out, c.bots)
	return out
}

// SetBotSystemPrompt replaces a bot's system prompt and persists the room.
func (c *Chatroom) SetBotSystemPrompt(roleName, prompt string) error {
	c.mu.Lock()
	b := c.findBotLocked(roleName)
	if b == nil {
		c.mu.Unlock()
		return fmt.Errorf("bot %q in chatroom %q: %w", roleName, c.name, ErrNotFound)
	}
	b.SetSystemPrompt(prompt)
	doc := c.documentLocked()
	c.mu.Unlock()

	return c.persist(doc)
}

// ConfigureBotEngine rebuilds a bot's engine and persists the room. On
// failure (unknown engine type) the bot keeps its previous working engine.
func (c *Chatroom) ConfigureBotEngine(roleName, engineType, modelName, apiKey string) error {
	sys := c.sysConfig()

	c.mu.Lock()
	b := c.findBotLocked(roleName)
	if b == nil {
		c.mu.Unlock()
		return fmt.Errorf("bot %q in chatroom %q: %w", roleName, c.name, ErrNotFound)
	}
	if err := b.SetEngine(engineType, modelName, apiKey, sys); err != nil {
		c.mu.Unlock()
		return err
	}
	doc := c.documentLocked()
	c.mu.Unlock()

	return c.persist(doc)
}

func (c *Chatroom) findBotLocked(roleName string) *Bot {
	for _, b := range c.bots {
		if b.RoleName == roleName {
			return b
		}
	}
	return nil
}

// -------------------------------------------------------------------------
// Messages
// -------------------------------------------------------------------------

// AppendMessage appends an existing message to the transcript.
func (c *Chatroom) AppendMessage(msg aiengine.Message) error {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	doc := c.documentLocked()
	c.mu.Unlock()

	c.notify(msg, false)
	return c.persist(doc)
}

// AddMessage creates a message from sender and content, appends it and
// returns it.
func (c *Chatroom) AddMessage(sender, content string) (aiengine.Message, error) {
	msg := aiengine.NewMessage(sender, content)
	return msg, c.AppendMessage(msg)
}

// CreateFakeMessage appends a message authored without engine invocation,
// used to seed or doctor history. Nothing distinguishes it from genuine
// output, in memory or in storage.
func (c *Chatroom) CreateFakeMessage(sender, content string) (aiengine.Message, error) {
	msg := aiengine.NewMessage(sender, content)

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	doc := c.documentLocked()
	c.mu.Unlock()

	c.notify(msg, true)
	return msg, c.persist(doc)
}

// Messages returns a copy of the transcript in chronological order.
func (c *Chatroom) Messages() []aiengine.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]aiengine.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// DeleteMessages removes the messages at the given indices. Duplicate and
// out-of-range indices are ignored, so deleting an already-deleted entry is
// a no-op rather than an error.
func (c *Chatroom) DeleteMessages(indices ...int) error {
	c.mu.Lock()
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(c.messages) {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		c.mu.Unlock()
		return nil
	}
	kept := c.messages[:0]
	for i, m := range c.messages {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	c.messages = kept
	doc := c.documentLocked()
	c.mu.Unlock()

	return c.persist(doc)
}

// DeleteMessagesByID removes messages by identity. Unknown IDs are ignored.
func (c *Chatroom) DeleteMessagesByID(ids ...string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	c.mu.Lock()
	kept := c.messages[:0]
	for _, m := range c.messages {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(c.messages) {
		c.mu.Unlock()
		return nil
	}
	c.messages = kept
	doc := c.documentLocked()
	c.mu.Unlock()

	return c.persist(doc)
}

// FormattedHistory returns the transcript formatted for display.
func (c *Chatroom) FormattedHistory() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.DisplayString()
	}
	return out
}

// GenerateBotResponse asks the named bot for the next reply given the
// current transcript, appends the result and returns it. Provider failures
// arrive as "Error: ..." message content, never as a Go error; the error
// return covers structural problems (unknown bot) and save failures only.
func (c *Chatroom) GenerateBotResponse(ctx context.Context, roleName string) (aiengine.Message, error) {
	c.mu.RLock()
	var (
		engine aiengine.Engine
		prompt string
	)
	if bot := c.findBotLocked(roleName); bot != nil {
		engine = bot.engine
		prompt = bot.SystemPrompt
	}
	history := make([]aiengine.Message, len(c.messages))
	copy(history, c.messages)
	c.mu.RUnlock()

	if engine == nil {
		return aiengine.Message{}, fmt.Errorf("bot %q in chatroom %q: %w", roleName, c.Name(), ErrNotFound)
	}

	// Blocking provider call, made outside the room lock. Engine and prompt
	// were captured under the lock, so a concurrent reconfigure swaps the
	// bot's engine without touching this call.
	text := engine.GenerateResponse(ctx, roleName, prompt, history)
	msg := aiengine.NewMessage(roleName, text)
	return msg, c.AppendMessage(msg)
}

// -------------------------------------------------------------------------
// Internal helpers
// -------------------------------------------------------------------------

// documentSnapshot locks the room and snapshots it for persistence.
func (c *Chatroom) documentSnapshot() roomDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentLocked()
}

// documentLocked snapshots the room for persistence. Caller must hold mu.
func (c *Chatroom) documentLocked() roomDocument {
	doc := roomDocument{
		Name:     c.name,
		Bots:     c.botDocumentsLocked(),
		Messages: make([]aiengine.Message, len(c.messages)),
	}
	copy(doc.Messages, c.messages)
	return doc
}

// botDocumentsLocked copies every bot's configuration by value. Caller must
// hold mu.
func (c *Chatroom) botDocumentsLocked() []botDocument {
	out := make([]botDocument, len(c.bots))
	for i, b := range c.bots {
		out[i] = botDocument{
			RoleName:     b.RoleName,
			EngineType:   b.EngineType,
			ModelName:    b.ModelName,
			SystemPrompt: b.SystemPrompt,
		}
	}
	return out
}

// botSnapshot locks the room and copies every bot's configuration.
func (c *Chatroom) botSnapshot() []botDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botDocumentsLocked()
}

func (c *Chatroom) persist(doc roomDocument) error {
	c.mu.RLock()
	mgr := c.manager
	c.mu.RUnlock()

	if mgr == nil {
		return nil // detached room, nothing to persist
	}
	return mgr.persistRoom(doc)
}

func (c *Chatroom) notify(msg aiengine.Message, fabricated bool) {
	c.mu.RLock()
	mgr := c.manager
	room := c.name
	c.mu.RUnlock()

	if mgr != nil {
		mgr.notifyMessage(room, msg, fabricated)
	}
}

func (c *Chatroom) sysConfig() *config.SystemConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.manager == nil {
		return nil
	}
	return c.manager.sys
}
