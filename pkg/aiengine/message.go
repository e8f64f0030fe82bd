package aiengine

import (
	"fmt"
	"time"

	"cognichoir/pkg/utils"
)

// Message is one entry of a chatroom transcript. Sender is either a bot
// role name or the local user marker; fabricated entries look exactly like
// engine-produced ones.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time and a fresh ID.
func NewMessage(sender, content string) Message {
	return Message{
		ID:        utils.GenerateID(),
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// DisplayString formats the message for transcript rendering.
func (m Message) DisplayString() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("2006-01-02 15:04:05"), m.Sender, m.Content)
}
