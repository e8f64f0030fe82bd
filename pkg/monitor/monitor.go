package monitor

import "time"

// Event kinds observed on chatroom transcripts.
const (
	EventUser       = "USER"
	EventBot        = "BOT"
	EventFabricated = "FABRICATED"
)

// TranscriptEvent describes one message appended to a chatroom.
type TranscriptEvent struct {
	Timestamp time.Time
	Kind      string // EventUser, EventBot or EventFabricated
	Room      string
	Sender    string
	Content   string
}

// Monitor receives transcript events from the chatroom manager. It exists so
// a headless run still has a visible record of the conversation flow.
type Monitor interface {
	// Start activates the monitor.
	Start() error

	// Stop deactivates the monitor.
	Stop() error

	// OnEvent receives and displays one transcript event.
	OnEvent(ev TranscriptEvent)
}
