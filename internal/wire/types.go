package wire

import "time"

// User is a chat user as the server reports it.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Room is a chat room from the REST directory.
type Room struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int       `json:"created_by"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a chat message. Immutable once received.
type Message struct {
	ID        int       `json:"id"`
	RoomID    int       `json:"room_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomEvent is the payload of user_joined / user_left frames.
type RoomEvent struct {
	RoomID   int    `json:"room_id"`
	Username string `json:"username"`
}

// TypingEvent is the payload of an inbound typing frame.
type TypingEvent struct {
	RoomID   int    `json:"room_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}
