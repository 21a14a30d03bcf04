package app

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/lock"
	"github.com/termchat/termchat/internal/mailbox"
	"github.com/termchat/termchat/internal/presence"
	"github.com/termchat/termchat/internal/status"
	"github.com/termchat/termchat/internal/store"
	intsync "github.com/termchat/termchat/internal/sync"
	"github.com/termchat/termchat/internal/typing"
	"github.com/termchat/termchat/internal/wire"
	"github.com/termchat/termchat/internal/ws"
	"go.uber.org/zap"
)

type captureSender struct {
	frames []wire.Frame
}

func (c *captureSender) Send(f wire.Frame) {
	c.frames = append(c.frames, f)
}

func TestSendRelayDropsUntilBound(t *testing.T) {
	relay := &sendRelay{}

	// Unbound: must not panic, frame goes nowhere.
	relay.Send(wire.JoinRoom(1))

	sink := &captureSender{}
	relay.bind(sink)
	relay.Send(wire.JoinRoom(2))

	if len(sink.frames) != 1 {
		t.Fatalf("got %d frames after bind, want 1", len(sink.frames))
	}
	if sink.frames[0].Type != wire.TypeJoinRoom {
		t.Errorf("frame type = %q, want %q", sink.frames[0].Type, wire.TypeJoinRoom)
	}
}

// TestComponentWiring assembles the core pipeline the way the fx
// providers do and pushes frames through the router, verifying that
// every store downstream of the dispatch path is reachable and
// mutated.
func TestComponentWiring(t *testing.T) {
	profileDir := t.TempDir()

	lk, err := lock.Acquire(profileDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(filepath.Join(profileDir, "termchat.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	logger := zap.NewNop()
	b := bus.New()
	machine := status.NewMachine(b)
	mb := mailbox.NewStore()
	reg := mailbox.NewRegistry()
	roster := presence.NewTracker()

	relay := &sendRelay{}
	typ := typing.NewAggregator(relay, time.Second, b)
	engine := intsync.NewEngine(mb, reg, roster, typ, b, logger)
	router := ws.NewRouter(engine, logger)

	if machine.Current() != status.Disconnected {
		t.Fatalf("initial state = %v, want Disconnected", machine.Current())
	}

	var notified []wire.Message
	dispose := reg.Register(func(msg wire.Message) {
		notified = append(notified, msg)
	})
	defer dispose()

	frame := func(kind string, payload any) []byte {
		t.Helper()
		data, err := json.Marshal(map[string]any{"type": kind, "payload": payload})
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	router.Dispatch(frame("online_users", []map[string]any{{"id": 1, "username": "alice"}}))
	router.Dispatch(frame("new_message", map[string]any{"id": 10, "room_id": 3, "user_id": 1, "username": "alice", "content": "hi"}))
	router.Dispatch(frame("typing", map[string]any{"room_id": 3, "username": "alice", "is_typing": true}))

	if roster.Count() != 1 || !roster.Online(1) {
		t.Errorf("roster count = %d, online(1) = %v", roster.Count(), roster.Online(1))
	}
	if msgs := mb.Get(3); len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Errorf("mailbox(3) = %+v, want one message 'hi'", msgs)
	}
	if len(notified) != 1 {
		t.Errorf("registry notified %d times, want 1", len(notified))
	}
	if typists := typ.Typists(3); len(typists) != 1 || typists[0] != "alice" {
		t.Errorf("typists(3) = %v, want [alice]", typists)
	}

	// Credentials written by the login flow must come back for the
	// connection manager's TokenProvider.
	if err := db.SaveCredentials(&store.Credentials{Token: "opaque-token", UserID: 1, Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	if got := db.Token(); got != "opaque-token" {
		t.Errorf("Token() = %q, want opaque-token", got)
	}
}
