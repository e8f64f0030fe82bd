package chat

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"cognichoir/pkg/utils"
)

// BotTemplate is a reusable bot configuration that can be stamped into any
// chatroom. Templates carry no API keys and no live engine.
type BotTemplate struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EngineType   string `json:"engine_type"`
	ModelName    string `json:"model_name"`
	SystemPrompt string `json:"system_prompt"`
}

// BotTemplateManager persists named bot templates in a single JSON file,
// keyed by generated ID.
type BotTemplateManager struct {
	path string

	mu        sync.Mutex
	templates map[string]BotTemplate
}

// NewBotTemplateManager loads the template file from dataDir, starting empty
// if it does not exist yet.
func NewBotTemplateManager(dataDir string) *BotTemplateManager {
	tm := &BotTemplateManager{
		path:      filepath.Join(dataDir, "bot_templates.json"),
		templates: make(map[string]BotTemplate),
	}

	data, err := os.ReadFile(tm.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read bot templates file", "path", tm.path, "error", err)
		}
		return tm
	}
	if err := json.Unmarshal(data, &tm.templates); err != nil {
		slog.Error("Failed to parse bot templates file", "path", tm.path, "error", err)
		tm.templates = make(map[string]BotTemplate)
		return tm
	}

	// Drop entries that lost their essentials to hand edits.
	for id, t := range tm.templates {
		if t.Name == "" || t.EngineType == "" {
			slog.Warn("Skipping invalid bot template", "id", id)
			delete(tm.templates, id)
		}
	}
	return tm
}

// Create registers a new template and returns it with a generated ID.
func (tm *BotTemplateManager) Create(name, engineType, modelName, systemPrompt string) (BotTemplate, error) {
	if name == "" {
		return BotTemplate{}, fmt.Errorf("bot template: %w", ErrEmptyName)
	}

	t := BotTemplate{
		ID:           uuid.NewString(),
		Name:         name,
		EngineType:   engineType,
		ModelName:    modelName,
		SystemPrompt: systemPrompt,
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.templates[t.ID] = t
	return t, tm.flushLocked()
}

// Get retrieves a template by ID.
func (tm *BotTemplateManager) Get(id string) (BotTemplate, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.templates[id]
	return t, ok
}

// Update replaces an existing template's configuration, keeping its ID.
func (tm *BotTemplateManager) Update(t BotTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("bot template: %w", ErrEmptyName)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, ok := tm.templates[t.ID]; !ok {
		return fmt.Errorf("bot template %q: %w", t.ID, ErrNotFound)
	}
	tm.templates[t.ID] = t
	return tm.flushLocked()
}

// Delete removes a template by ID. Deleting an absent template is a no-op.
func (tm *BotTemplateManager) Delete(id string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, ok := tm.templates[id]; !ok {
		return nil
	}
	delete(tm.templates, id)
	return tm.flushLocked()
}

// List returns all templates sorted by name.
func (tm *BotTemplateManager) List() []BotTemplate {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	out := make([]BotTemplate, 0, len(tm.templates))
	for _, t := range tm.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ApplyTo adds a bot built from the template to the given chatroom. The role
// name defaults to the template name when roleName is empty.
func (tm *BotTemplateManager) ApplyTo(room *Chatroom, id, roleName, apiKey string) (*Bot, error) {
	t, ok := tm.Get(id)
	if !ok {
		return nil, fmt.Errorf("bot template %q: %w", id, ErrNotFound)
	}
	if roleName == "" {
		roleName = t.Name
	}
	return room.AddBot(roleName, t.EngineType, t.ModelName, t.SystemPrompt, apiKey)
}

func (tm *BotTemplateManager) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(tm.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tm.templates, "", "  ")
	if err != nil {
		return err
	}
	if err := utils.AtomicWriteFile(tm.path, data, 0644); err != nil {
		slog.Error("Failed to save bot templates", "path", tm.path, "error", err)
		return fmt.Errorf("failed to save bot templates: %w", err)
	}
	return nil
}
