// Package chat implements the chatroom model: messages, bots bound to AI
// engines, and the manager that owns every chatroom and persists each one to
// its own JSON file on every mutation.
package chat

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"cognichoir/pkg/aiengine"
	"cognichoir/pkg/apikey"
	"cognichoir/pkg/config"
	"cognichoir/pkg/monitor"
	"cognichoir/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var filenameSafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// slugFilename maps a chatroom name onto a stable JSON filename. The
// mapping is lossy, so distinct names can claim the same file; Create and
// Rename reject such collisions.
func slugFilename(name string) string {
	return filenameSafeRegex.ReplaceAllString(name, "_") + ".json"
}

// Manager is the process-wide registry of chatrooms keyed by name. It owns
// every Chatroom instance, enforces name uniqueness and persists each room
// as a side effect of mutation; collaborators never call an explicit save.
type Manager struct {
	dir  string
	sys  *config.SystemConfig
	keys *apikey.Manager

	mu    sync.RWMutex
	rooms map[string]*Chatroom
	order []string

	mon monitor.Monitor
}

// NewManager creates the chatroom registry and loads every persisted room
// from the chatrooms directory. Individual corrupt files are logged and
// skipped rather than failing startup.
func NewManager(sys *config.SystemConfig, keys *apikey.Manager) (*Manager, error) {
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	dir := sys.ChatroomsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chatrooms directory: %w", err)
	}

	m := &Manager{
		dir:   dir,
		sys:   sys,
		keys:  keys,
		rooms: make(map[string]*Chatroom),
	}
	m.loadFromDisk()
	return m, nil
}

// SetMonitor attaches a transcript monitor. Pass nil to detach.
func (m *Manager) SetMonitor(mon monitor.Monitor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mon = mon
}

// Create makes a new empty chatroom and persists it immediately.
func (m *Manager) Create(name string) (*Chatroom, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("chatroom: %w", ErrEmptyName)
	}

	m.mu.Lock()
	if _, exists := m.rooms[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("chatroom %q: %w", name, ErrNameConflict)
	}
	if other, ok := m.slugOwnerLocked(name, name); ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("chatroom %q: storage name collides with %q: %w", name, other, ErrNameConflict)
	}
	room := NewChatroom(name)
	room.manager = m
	m.rooms[name] = room
	m.order = append(m.order, name)
	m.mu.Unlock()

	slog.Info("Chatroom created", "room", name)
	return room, m.persistRoom(room.documentSnapshot())
}

// slugOwnerLocked reports which room other than exclude already occupies
// the storage filename that name maps to. Caller must hold mu.
func (m *Manager) slugOwnerLocked(name, exclude string) (string, bool) {
	slug := slugFilename(name)
	for existing := range m.rooms {
		if existing != exclude && slugFilename(existing) == slug {
			return existing, true
		}
	}
	return "", false
}

// Get retrieves a chatroom by name.
func (m *Manager) Get(name string) (*Chatroom, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[name]
	return room, ok
}

// List returns the chatroom names in registry order: load order for rooms
// read from disk, then creation order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Delete removes a chatroom and its file on disk.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	room, ok := m.rooms[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("chatroom %q: %w", name, ErrNotFound)
	}
	delete(m.rooms, name)
	m.removeFromOrder(name)
	m.mu.Unlock()

	room.mu.Lock()
	room.manager = nil
	room.mu.Unlock()

	path := filepath.Join(m.dir, slugFilename(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to remove chatroom file", "room", name, "path", path, "error", err)
		return fmt.Errorf("failed to remove chatroom file: %w", err)
	}
	slog.Info("Chatroom deleted", "room", name)
	return nil
}

// Rename changes a chatroom's name, rewrites its file under the new slug and
// removes the old file. Renaming to the current name is a no-op.
func (m *Manager) Rename(oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("chatroom: %w", ErrEmptyName)
	}
	if oldName == newName {
		return nil
	}

	m.mu.Lock()
	if _, exists := m.rooms[newName]; exists {
		m.mu.Unlock()
		return fmt.Errorf("chatroom %q: %w", newName, ErrNameConflict)
	}
	if other, ok := m.slugOwnerLocked(newName, oldName); ok {
		m.mu.Unlock()
		return fmt.Errorf("chatroom %q: storage name collides with %q: %w", newName, other, ErrNameConflict)
	}
	room, ok := m.rooms[oldName]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("chatroom %q: %w", oldName, ErrNotFound)
	}
	delete(m.rooms, oldName)
	m.rooms[newName] = room
	for i, n := range m.order {
		if n == oldName {
			m.order[i] = newName
			break
		}
	}
	m.mu.Unlock()

	room.mu.Lock()
	room.name = newName
	doc := room.documentLocked()
	room.mu.Unlock()

	if err := m.persistRoom(doc); err != nil {
		return err
	}

	oldPath := filepath.Join(m.dir, slugFilename(oldName))
	if oldPath != filepath.Join(m.dir, slugFilename(newName)) {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			slog.Error("Failed to remove old chatroom file after rename",
				"room", oldName, "path", oldPath, "error", err)
		}
	}
	slog.Info("Chatroom renamed", "from", oldName, "to", newName)
	return nil
}

// Clone produces a deep, independent copy of a chatroom under a new name:
// bot configurations are rebuilt (engines fresh, API keys re-resolved) and
// the full transcript is copied. Fails if newName is already taken.
func (m *Manager) Clone(name, newName string) (*Chatroom, error) {
	source, ok := m.Get(name)
	if !ok {
		return nil, fmt.Errorf("chatroom %q: %w", name, ErrNotFound)
	}

	clone, err := m.Create(newName)
	if err != nil {
		return nil, err
	}

	for _, b := range source.botSnapshot() {
		if _, err := clone.AddBot(b.RoleName, b.EngineType, b.ModelName, b.SystemPrompt, m.resolveKey(b.EngineType)); err != nil {
			slog.Warn("Failed to clone bot", "room", newName, "bot", b.RoleName, "error", err)
		}
	}

	msgs := source.Messages()
	clone.mu.Lock()
	clone.messages = append(clone.messages, msgs...)
	doc := clone.documentLocked()
	clone.mu.Unlock()

	slog.Info("Chatroom cloned", "from", name, "to", newName)
	return clone, m.persistRoom(doc)
}

// -------------------------------------------------------------------------
// Persistence
// -------------------------------------------------------------------------

// persistRoom writes one chatroom document to disk, wholly and atomically.
// A failed write is logged and surfaced to the caller, but never crashes the
// process.
func (m *Manager) persistRoom(doc roomDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize chatroom %q: %w", doc.Name, err)
	}

	path := filepath.Join(m.dir, slugFilename(doc.Name))
	if err := utils.AtomicWriteFile(path, data, 0644); err != nil {
		slog.Error("Failed to save chatroom", "room", doc.Name, "path", path, "error", err)
		return fmt.Errorf("failed to save chatroom %q: %w", doc.Name, err)
	}
	slog.Debug("Chatroom saved", "room", doc.Name, "path", path)
	return nil
}

// loadFromDisk reads every *.json room file in the chatrooms directory.
func (m *Manager) loadFromDisk() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		slog.Error("Failed to read chatrooms directory", "dir", m.dir, "error", err)
		return
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		room, err := m.loadRoomFile(path)
		if err != nil {
			slog.Error("Failed to load chatroom file", "path", path, "error", err)
			continue
		}
		if _, exists := m.rooms[room.name]; exists {
			slog.Warn("Duplicate chatroom name on disk, skipping file", "room", room.name, "path", path)
			continue
		}
		m.rooms[room.name] = room
		m.order = append(m.order, room.name)
		loaded++
	}
	slog.Info("Chatrooms loaded from disk", "count", loaded, "dir", m.dir)
}

// loadRoomFile reconstructs one chatroom from its JSON document. Engines are
// rebuilt from the persisted configuration with API keys re-resolved from
// the key manager; raw keys are never stored in chatroom files.
func (m *Manager) loadRoomFile(path string) (*Chatroom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc roomDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse chatroom file: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("chatroom file %s has no name", filepath.Base(path))
	}

	room := NewChatroom(doc.Name)
	room.manager = m

	for _, stored := range doc.Bots {
		bot, err := NewBot(stored.RoleName, stored.EngineType, stored.ModelName,
			stored.SystemPrompt, m.resolveKey(stored.EngineType), m.sys)
		if err != nil {
			slog.Warn("Failed to rebuild bot from chatroom file",
				"room", doc.Name, "bot", stored.RoleName, "error", err)
			continue
		}
		if bot.Engine().RequiresAPIKey() {
			if _, ok := m.keyFor(stored.EngineType); !ok {
				slog.Warn("No API key configured for bot engine; bot will answer with errors",
					"room", doc.Name, "bot", stored.RoleName, "engine", stored.EngineType)
			}
		}
		room.bots = append(room.bots, bot)
	}

	for _, msg := range doc.Messages {
		if msg.ID == "" {
			msg.ID = utils.GenerateID()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		room.messages = append(room.messages, msg)
	}

	return room, nil
}

func (m *Manager) resolveKey(engineType string) string {
	key, _ := m.keyFor(engineType)
	return key
}

func (m *Manager) keyFor(engineType string) (string, bool) {
	if m.keys == nil {
		return "", false
	}
	return m.keys.GetKey(engineType)
}

func (m *Manager) removeFromOrder(name string) {
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// notifyMessage forwards an appended message to the attached monitor.
func (m *Manager) notifyMessage(room string, msg aiengine.Message, fabricated bool) {
	m.mu.RLock()
	mon := m.mon
	r := m.rooms[room]
	m.mu.RUnlock()

	if mon == nil {
		return
	}

	kind := monitor.EventUser
	switch {
	case fabricated:
		kind = monitor.EventFabricated
	case r != nil:
		if _, ok := r.GetBot(msg.Sender); ok {
			kind = monitor.EventBot
		}
	}

	mon.OnEvent(monitor.TranscriptEvent{
		Timestamp: msg.Timestamp,
		Kind:      kind,
		Room:      room,
		Sender:    msg.Sender,
		Content:   msg.Content,
	})
}
