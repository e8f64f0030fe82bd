package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotTemplates_CRUD(t *testing.T) {
	dir := t.TempDir()
	tm := NewBotTemplateManager(dir)

	created, err := tm.Create("Helper", "stub", "stub-xl", "be helpful")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = tm.Create("", "stub", "", "")
	require.ErrorIs(t, err, ErrEmptyName)

	got, ok := tm.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Helper", got.Name)

	got.SystemPrompt = "be terse"
	require.NoError(t, tm.Update(got))
	updated, _ := tm.Get(created.ID)
	assert.Equal(t, "be terse", updated.SystemPrompt)

	missing := got
	missing.ID = "no-such-id"
	require.ErrorIs(t, tm.Update(missing), ErrNotFound)

	require.NoError(t, tm.Delete(created.ID))
	_, ok = tm.Get(created.ID)
	assert.False(t, ok)

	// Absent ID deletes silently.
	require.NoError(t, tm.Delete(created.ID))
}

func TestBotTemplates_ListSortedByName(t *testing.T) {
	tm := NewBotTemplateManager(t.TempDir())

	for _, name := range []string{"Charlie", "Alice", "Bravo"} {
		_, err := tm.Create(name, "stub", "", "")
		require.NoError(t, err)
	}

	list := tm.List()
	require.Len(t, list, 3)
	assert.Equal(t, "Alice", list[0].Name)
	assert.Equal(t, "Bravo", list[1].Name)
	assert.Equal(t, "Charlie", list[2].Name)
}

func TestBotTemplates_PersistAcrossReload(t *testing.T) {
	dir := t.TempDir()

	tm1 := NewBotTemplateManager(dir)
	created, err := tm1.Create("Helper", "stub", "stub-xl", "be helpful")
	require.NoError(t, err)

	tm2 := NewBotTemplateManager(dir)
	got, ok := tm2.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestBotTemplates_ApplyTo(t *testing.T) {
	m := newTestManager(t)
	room, err := m.Create("lounge")
	require.NoError(t, err)

	tm := NewBotTemplateManager(t.TempDir())
	created, err := tm.Create("Helper", "stub", "stub-xl", "be helpful")
	require.NoError(t, err)

	// Role name defaults to the template name.
	bot, err := tm.ApplyTo(room, created.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Helper", bot.RoleName)
	assert.Equal(t, "be helpful", bot.SystemPrompt)

	// Explicit role name wins; the same template can stock one room twice.
	bot2, err := tm.ApplyTo(room, created.ID, "Helper Two", "")
	require.NoError(t, err)
	assert.Equal(t, "Helper Two", bot2.RoleName)
	require.Len(t, room.Bots(), 2)

	_, err = tm.ApplyTo(room, "no-such-id", "X", "")
	require.ErrorIs(t, err, ErrNotFound)
}
