package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognichoir/pkg/apikey"
	"cognichoir/pkg/config"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t)

	room, err := m.Create("general")
	require.NoError(t, err)
	assert.Equal(t, "general", room.Name())
	assert.Empty(t, room.Messages())
	assert.Empty(t, room.Bots())

	got, ok := m.Get("general")
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestManager_CreateRejectsDuplicatesAndEmpty(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("general")
	require.NoError(t, err)

	_, err = m.Create("general")
	require.ErrorIs(t, err, ErrNameConflict)

	_, err = m.Create("   ")
	require.ErrorIs(t, err, ErrEmptyName)

	assert.Equal(t, []string{"general"}, m.List())
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t)

	room, err := m.Create("doomed")
	require.NoError(t, err)

	require.NoError(t, m.Delete("doomed"))
	_, ok := m.Get("doomed")
	assert.False(t, ok)

	// The room object survives but is detached from persistence.
	err = room.Rename("revived")
	require.ErrorIs(t, err, ErrDetached)

	err = m.Delete("doomed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Rename(t *testing.T) {
	m := newTestManager(t)

	room, err := m.Create("old")
	require.NoError(t, err)
	_, err = m.Create("taken")
	require.NoError(t, err)

	require.ErrorIs(t, m.Rename("old", "taken"), ErrNameConflict)
	require.ErrorIs(t, m.Rename("missing", "anything"), ErrNotFound)
	require.NoError(t, m.Rename("old", "old")) // no-op

	require.NoError(t, m.Rename("old", "new"))
	assert.Equal(t, "new", room.Name())
	_, ok := m.Get("old")
	assert.False(t, ok)
	got, ok := m.Get("new")
	require.True(t, ok)
	assert.Same(t, room, got)

	// The room file follows the name.
	assert.NoFileExists(t, filepath.Join(m.dir, slugFilename("old")))
	assert.FileExists(t, filepath.Join(m.dir, slugFilename("new")))
}

func TestManager_CloneIsIndependent(t *testing.T) {
	m := newTestManager(t)

	source, err := m.Create("source")
	require.NoError(t, err)
	_, err = source.AddBot("Alice", "stub", "", "prompt", "")
	require.NoError(t, err)
	_, err = source.AddMessage("User", "original line")
	require.NoError(t, err)

	clone, err := m.Clone("source", "copy")
	require.NoError(t, err)

	// Bot roster and transcript are carried over.
	require.Len(t, clone.Bots(), 1)
	require.Len(t, clone.Messages(), 1)
	assert.Equal(t, "original line", clone.Messages()[0].Content)

	// Mutations after cloning do not cross over.
	_, err = clone.AddMessage("User", "only in copy")
	require.NoError(t, err)
	require.NoError(t, source.RemoveBot("Alice"))

	assert.Len(t, source.Messages(), 1)
	assert.Len(t, clone.Messages(), 2)
	assert.Len(t, clone.Bots(), 1)
}

func TestManager_CloneNameRules(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create("source")
	require.NoError(t, err)

	_, err = m.Clone("missing", "copy")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.Clone("source", "source")
	require.ErrorIs(t, err, ErrNameConflict)
}

func TestChatroom_CloneDelegatesToManager(t *testing.T) {
	m := newTestManager(t)
	source, err := m.Create("source")
	require.NoError(t, err)
	_, err = source.AddMessage("User", "hi")
	require.NoError(t, err)

	clone, err := source.Clone("copy")
	require.NoError(t, err)
	require.Len(t, clone.Messages(), 1)

	got, ok := m.Get("copy")
	require.True(t, ok)
	assert.Same(t, clone, got)

	detached := NewChatroom("orphan")
	_, err = detached.Clone("anything")
	require.ErrorIs(t, err, ErrDetached)
}

func TestManager_PersistenceRoundTrip(t *testing.T) {
	sys := config.DefaultSystemConfig()
	sys.DataDir = t.TempDir()
	keys := apikey.NewManagerWithFallback(sys.DataDir)

	m1, err := NewManager(sys, keys)
	require.NoError(t, err)

	room, err := m1.Create("persisted")
	require.NoError(t, err)
	_, err = room.AddBot("Alice", "stub", "stub-xl", "be helpful", "")
	require.NoError(t, err)
	_, err = room.AddMessage("User", "still here after restart?")
	require.NoError(t, err)

	// A second manager over the same directory sees the same state.
	m2, err := NewManager(sys, keys)
	require.NoError(t, err)

	reloaded, ok := m2.Get("persisted")
	require.True(t, ok)

	msgs := reloaded.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "User", msgs[0].Sender)
	assert.Equal(t, "still here after restart?", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())

	bots := reloaded.Bots()
	require.Len(t, bots, 1)
	assert.Equal(t, "Alice", bots[0].RoleName)
	assert.Equal(t, "stub", bots[0].EngineType)
	assert.Equal(t, "stub-xl", bots[0].ModelName)
	assert.Equal(t, "be helpful", bots[0].SystemPrompt)
	require.NotNil(t, bots[0].Engine())
}

func TestManager_LoadSkipsCorruptFiles(t *testing.T) {
	sys := config.DefaultSystemConfig()
	sys.DataDir = t.TempDir()
	keys := apikey.NewManagerWithFallback(sys.DataDir)

	m1, err := NewManager(sys, keys)
	require.NoError(t, err)
	_, err = m1.Create("good")
	require.NoError(t, err)

	corrupt := filepath.Join(sys.ChatroomsDir(), "broken.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))

	m2, err := NewManager(sys, keys)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, m2.List())
}

func TestSlugFilename(t *testing.T) {
	assert.Equal(t, "My_Room_2.json", slugFilename("My Room/2"))
	assert.Equal(t, "plain-name.json", slugFilename("plain-name"))
}

func TestManager_CreateRejectsFilenameCollision(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create("a b")
	require.NoError(t, err)

	// "a b" and "a_b" map to the same file; the second room must not
	// silently share or overwrite it.
	_, err = m.Create("a_b")
	require.ErrorIs(t, err, ErrNameConflict)
	assert.Equal(t, []string{"a b"}, m.List())
}

func TestManager_RenameRejectsFilenameCollision(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create("a b")
	require.NoError(t, err)
	_, err = m.Create("other")
	require.NoError(t, err)

	require.ErrorIs(t, m.Rename("other", "a_b"), ErrNameConflict)
	_, ok := m.Get("other")
	assert.True(t, ok)

	// A room may move onto its own slug.
	require.NoError(t, m.Rename("a b", "a_b"))
	assert.FileExists(t, filepath.Join(m.dir, slugFilename("a_b")))
}
