package ws

import (
	"encoding/json"

	"github.com/termchat/termchat/internal/wire"
	"go.uber.org/zap"
)

// Handler receives decoded inbound frames. The router is the single
// fan-out point; nothing else observes raw frames.
type Handler interface {
	HandleNewMessage(msg wire.Message)
	HandleOnlineUsers(users []wire.User)
	HandleUserJoined(evt wire.RoomEvent)
	HandleUserLeft(evt wire.RoomEvent)
	HandleTyping(evt wire.TypingEvent)
}

// Router decodes inbound frames and dispatches them by type. Decode
// failures and unknown types are logged and discarded; nothing
// propagates to the read loop.
type Router struct {
	handler Handler
	logger  *zap.Logger
}

// NewRouter creates a router bound to a handler.
func NewRouter(handler Handler, logger *zap.Logger) *Router {
	return &Router{handler: handler, logger: logger}
}

// Dispatch parses a raw transport message and invokes the bound
// handler for its frame type.
func (r *Router) Dispatch(data []byte) {
	frame, err := wire.DecodeFrame(data)
	if err != nil {
		r.logger.Warn("discarding undecodable frame", zap.Error(err))
		return
	}

	switch frame.Type {
	case wire.TypeNewMessage:
		var msg wire.Message
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			r.logger.Warn("bad new_message payload", zap.Error(err))
			return
		}
		r.handler.HandleNewMessage(msg)

	case wire.TypeOnlineUsers:
		var users []wire.User
		if err := json.Unmarshal(frame.Payload, &users); err != nil {
			r.logger.Warn("bad online_users payload", zap.Error(err))
			return
		}
		r.handler.HandleOnlineUsers(users)

	case wire.TypeUserJoined:
		var evt wire.RoomEvent
		if err := json.Unmarshal(frame.Payload, &evt); err != nil {
			r.logger.Warn("bad user_joined payload", zap.Error(err))
			return
		}
		r.handler.HandleUserJoined(evt)

	case wire.TypeUserLeft:
		var evt wire.RoomEvent
		if err := json.Unmarshal(frame.Payload, &evt); err != nil {
			r.logger.Warn("bad user_left payload", zap.Error(err))
			return
		}
		r.handler.HandleUserLeft(evt)

	case wire.TypeTyping:
		var evt wire.TypingEvent
		if err := json.Unmarshal(frame.Payload, &evt); err != nil {
			r.logger.Warn("bad typing payload", zap.Error(err))
			return
		}
		r.handler.HandleTyping(evt)

	default:
		// Forward compatible: a server newer than this client may send
		// frame types we do not know yet.
		r.logger.Info("discarding unknown frame type", zap.String("type", frame.Type))
	}
}
