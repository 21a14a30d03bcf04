package wire

import (
	"encoding/json"
	"fmt"
)

// Inbound frame types.
const (
	TypeNewMessage  = "new_message"
	TypeOnlineUsers = "online_users"
	TypeUserJoined  = "user_joined"
	TypeUserLeft    = "user_left"
	TypeTyping      = "typing"
)

// Outbound frame types.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeSendMessage = "send_message"
)

// Frame is the typed envelope exchanged over the transport.
// Outbound frames carry a concrete payload; inbound frames are decoded
// with DecodeFrame, which leaves the payload raw for the router.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// RawFrame is an inbound frame with the payload still undecoded.
type RawFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeFrame parses a raw transport message into a RawFrame.
func DecodeFrame(data []byte) (*RawFrame, error) {
	var f RawFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("decode frame: missing type")
	}
	return &f, nil
}

// JoinRoom builds an outbound join_room frame.
func JoinRoom(roomID int) Frame {
	return Frame{Type: TypeJoinRoom, Payload: map[string]int{"room_id": roomID}}
}

// LeaveRoom builds an outbound leave_room frame.
func LeaveRoom(roomID int) Frame {
	return Frame{Type: TypeLeaveRoom, Payload: map[string]int{"room_id": roomID}}
}

// SendMessage builds an outbound send_message frame.
func SendMessage(roomID int, content string) Frame {
	return Frame{Type: TypeSendMessage, Payload: map[string]any{
		"room_id": roomID,
		"content": content,
	}}
}

// Typing builds an outbound typing frame for the local user.
func Typing(roomID int, isTyping bool) Frame {
	return Frame{Type: TypeTyping, Payload: map[string]any{
		"room_id":   roomID,
		"is_typing": isTyping,
	}}
}
