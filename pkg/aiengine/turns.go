package aiengine

import (
	"fmt"
	"strings"
)

// Turn roles of the provider-facing two-role schema.
const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

// Turn is one provider-facing conversation entry after role mapping.
type Turn struct {
	Role string
	Text string
}

// BuildTurns maps a multi-party room history onto the user/assistant schema
// every provider speaks. Messages sent by roleName become assistant turns.
// Everything else becomes user turns; consecutive non-assistant messages are
// coalesced into a single user turn, with each sender's block prefixed
// "<sender> said:" so attribution survives the two-role flattening.
func BuildTurns(roleName string, history []Message) []Turn {
	turns := make([]Turn, 0, len(history))

	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)

		if msg.Sender == roleName {
			turns = append(turns, Turn{Role: TurnAssistant, Text: content})
			continue
		}

		block := fmt.Sprintf("%s said:\n%s", msg.Sender, content)
		if n := len(turns); n > 0 && turns[n-1].Role == TurnUser {
			turns[n-1].Text += "\n\n" + block
		} else {
			turns = append(turns, Turn{Role: TurnUser, Text: block})
		}
	}

	return turns
}
