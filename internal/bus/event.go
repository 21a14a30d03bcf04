package bus

import "time"

// Event is a domain event published on the bus.
type Event struct {
	Kind    string
	At      time.Time
	Payload any
}

// Event kinds published by the client core. Subscribers filter by
// namespace prefix, e.g. "chat." or "conn.".
const (
	KindStatusChanged   = "conn.status_changed"
	KindMessage         = "chat.message"
	KindRoomEvent       = "chat.room_event"
	KindPresenceUpdated = "presence.updated"
	KindTypingChanged   = "typing.changed"
)
