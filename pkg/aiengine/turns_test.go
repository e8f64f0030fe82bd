package aiengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTurns_RoleMapping(t *testing.T) {
	history := []Message{
		{Sender: "User", Content: "hello Alice"},
		{Sender: "Alice", Content: "hello right back"},
		{Sender: "User", Content: "how are you?"},
	}

	turns := BuildTurns("Alice", history)
	require.Len(t, turns, 3)

	assert.Equal(t, TurnUser, turns[0].Role)
	assert.Equal(t, "User said:\nhello Alice", turns[0].Text)

	assert.Equal(t, TurnAssistant, turns[1].Role)
	assert.Equal(t, "hello right back", turns[1].Text)

	assert.Equal(t, TurnUser, turns[2].Role)
	assert.Equal(t, "User said:\nhow are you?", turns[2].Text)
}

func TestBuildTurns_CoalescesConsecutiveSpeakers(t *testing.T) {
	history := []Message{
		{Sender: "User", Content: "Alice, Bob, opinions?"},
		{Sender: "Bob", Content: "I vote yes."},
		{Sender: "Alice", Content: "I vote no."},
		{Sender: "User", Content: "interesting"},
	}

	// From Alice's perspective, everything before her reply is one user
	// turn with per-sender attribution blocks.
	turns := BuildTurns("Alice", history)
	require.Len(t, turns, 3)

	assert.Equal(t, TurnUser, turns[0].Role)
	assert.Equal(t, "User said:\nAlice, Bob, opinions?\n\nBob said:\nI vote yes.", turns[0].Text)

	assert.Equal(t, TurnAssistant, turns[1].Role)
	assert.Equal(t, "I vote no.", turns[1].Text)

	assert.Equal(t, TurnUser, turns[2].Role)
	assert.Equal(t, "User said:\ninteresting", turns[2].Text)
}

func TestBuildTurns_DoesNotMergeAcrossAssistantTurns(t *testing.T) {
	history := []Message{
		{Sender: "User", Content: "one"},
		{Sender: "Alice", Content: "two"},
		{Sender: "User", Content: "three"},
		{Sender: "Bob", Content: "four"},
	}

	turns := BuildTurns("Alice", history)
	require.Len(t, turns, 3)
	assert.Equal(t, "User said:\none", turns[0].Text)
	assert.Equal(t, "two", turns[1].Text)
	assert.Equal(t, "User said:\nthree\n\nBob said:\nfour", turns[2].Text)
}

func TestBuildTurns_TrimsContent(t *testing.T) {
	history := []Message{
		{Sender: "User", Content: "  padded  \n"},
		{Sender: "Alice", Content: "\treply\n"},
	}

	turns := BuildTurns("Alice", history)
	require.Len(t, turns, 2)
	assert.Equal(t, "User said:\npadded", turns[0].Text)
	assert.Equal(t, "reply", turns[1].Text)
}

func TestBuildTurns_EmptyHistory(t *testing.T) {
	assert.Empty(t, BuildTurns("Alice", nil))
}
