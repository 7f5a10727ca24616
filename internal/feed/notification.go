package feed

import "time"

// Notification types streamed to dashboards.
const (
	TypeEventAccepted  = "event_accepted"
	TypeEventEnriched  = "event_enriched"
	TypeSynchronized   = "events_synchronized"
	TypeSessionStarted = "session_started"
	TypeSessionClosed  = "session_closed"
	TypeLog            = "log"
)

// Notification is one lifecycle message sent to every feed client.
type Notification struct {
	Type      string         `json:"type"`
	Time      time.Time      `json:"time"`
	EventID   int64          `json:"event_id,omitempty"`
	SessionID int64          `json:"session_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher accepts notifications. Implementations must not block the caller.
type Publisher interface {
	Publish(Notification)
}

// Discard drops every notification.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(Notification) {}
