package sync

import (
	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/mailbox"
	"github.com/termchat/termchat/internal/presence"
	"github.com/termchat/termchat/internal/typing"
	"github.com/termchat/termchat/internal/wire"
	"go.uber.org/zap"
)

// Engine applies inbound frames to the client stores. It implements
// the router's handler interface, so every mutation happens on the
// single dispatch path, in delivery order. After each mutation it
// publishes a bus event for the UI.
type Engine struct {
	mailbox  *mailbox.Store
	registry *mailbox.Registry
	roster   *presence.Tracker
	typing   *typing.Aggregator
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewEngine creates an engine over the given stores.
func NewEngine(mb *mailbox.Store, reg *mailbox.Registry, roster *presence.Tracker, typ *typing.Aggregator, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		mailbox:  mb,
		registry: reg,
		roster:   roster,
		typing:   typ,
		bus:      b,
		logger:   logger,
	}
}

// HandleNewMessage appends the message to its room's mailbox and
// notifies registered observers.
func (e *Engine) HandleNewMessage(msg wire.Message) {
	e.mailbox.Append(msg)
	e.registry.Notify(msg)
	e.bus.Publish(bus.KindMessage, msg)
}

// HandleOnlineUsers replaces the presence roster in full.
func (e *Engine) HandleOnlineUsers(users []wire.User) {
	e.roster.Replace(users)
	e.bus.Publish(bus.KindPresenceUpdated, len(users))
}

// HandleUserJoined records a join notification. Informational only:
// membership comes from online_users snapshots, never from these.
func (e *Engine) HandleUserJoined(evt wire.RoomEvent) {
	e.logger.Info("user joined room", zap.String("username", evt.Username), zap.Int("room_id", evt.RoomID))
	e.bus.Publish(bus.KindRoomEvent, evt)
}

// HandleUserLeft records a leave notification. Informational only.
func (e *Engine) HandleUserLeft(evt wire.RoomEvent) {
	e.logger.Info("user left room", zap.String("username", evt.Username), zap.Int("room_id", evt.RoomID))
	e.bus.Publish(bus.KindRoomEvent, evt)
}

// HandleTyping updates the remote typing set for the event's room.
func (e *Engine) HandleTyping(evt wire.TypingEvent) {
	e.typing.SetTyping(evt.RoomID, evt.Username, evt.IsTyping)
}
