package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/mailbox"
	"github.com/termchat/termchat/internal/presence"
	"github.com/termchat/termchat/internal/typing"
	"github.com/termchat/termchat/internal/wire"
	"github.com/termchat/termchat/internal/ws"
	"go.uber.org/zap"
)

type nopSender struct{}

func (nopSender) Send(wire.Frame) {}

type fixture struct {
	engine   *Engine
	router   *ws.Router
	mailbox  *mailbox.Store
	registry *mailbox.Registry
	roster   *presence.Tracker
	typing   *typing.Aggregator
	bus      *bus.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := bus.New()
	mb := mailbox.NewStore()
	reg := mailbox.NewRegistry()
	roster := presence.NewTracker()
	typ := typing.NewAggregator(nopSender{}, time.Hour, b)
	t.Cleanup(typ.Stop)
	e := NewEngine(mb, reg, roster, typ, b, zap.NewNop())
	return &fixture{
		engine:   e,
		router:   ws.NewRouter(e, zap.NewNop()),
		mailbox:  mb,
		registry: reg,
		roster:   roster,
		typing:   typ,
		bus:      b,
	}
}

func TestNewMessageFlow(t *testing.T) {
	f := newFixture(t)

	var notified []wire.Message
	f.registry.Register(func(m wire.Message) { notified = append(notified, m) })

	ch, unsub := f.bus.Subscribe("chat.", 10)
	defer unsub()

	f.router.Dispatch([]byte(`{"type":"new_message","payload":{"id":1,"room_id":4,"username":"alice","content":"hey"}}`))

	got := f.mailbox.Get(4)
	if len(got) != 1 || got[0].Content != "hey" {
		t.Errorf("mailbox = %v", got)
	}
	if len(notified) != 1 || notified[0].ID != 1 {
		t.Errorf("registry notified = %v", notified)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindMessage {
			t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chat.message event")
	}
}

func TestPerRoomOrderAcrossInterleavedRooms(t *testing.T) {
	f := newFixture(t)

	// Frames for room 1 interleaved with room 2 traffic; room 1 order
	// must match delivery order exactly.
	for i := 1; i <= 5; i++ {
		f.router.Dispatch([]byte(fmt.Sprintf(`{"type":"new_message","payload":{"id":%d,"room_id":1,"content":"m%d"}}`, i, i)))
		f.router.Dispatch([]byte(fmt.Sprintf(`{"type":"new_message","payload":{"id":%d,"room_id":2,"content":"x"}}`, 100+i)))
	}

	got := f.mailbox.Get(1)
	if len(got) != 5 {
		t.Fatalf("room 1 has %d messages, want 5", len(got))
	}
	for i, m := range got {
		if m.ID != i+1 {
			t.Errorf("position %d has id %d, want %d", i, m.ID, i+1)
		}
	}
}

// TestConnectedScenario walks the concrete frame sequence a freshly
// connected client sees: roster snapshot, then a typing burst.
func TestConnectedScenario(t *testing.T) {
	f := newFixture(t)

	f.router.Dispatch([]byte(`{"type":"online_users","payload":[{"id":1,"username":"alice"}]}`))

	roster := f.roster.Current()
	if len(roster) != 1 || roster[0].ID != 1 || roster[0].Username != "alice" {
		t.Fatalf("roster = %v, want [alice]", roster)
	}

	f.router.Dispatch([]byte(`{"type":"typing","payload":{"room_id":5,"username":"alice","is_typing":true}}`))
	if got := f.typing.Typists(5); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("typists = %v, want [alice]", got)
	}

	f.router.Dispatch([]byte(`{"type":"typing","payload":{"room_id":5,"username":"alice","is_typing":false}}`))
	if got := f.typing.Typists(5); len(got) != 0 {
		t.Fatalf("typists = %v, want empty", got)
	}
}

func TestRosterReplaceNotMerge(t *testing.T) {
	f := newFixture(t)

	f.router.Dispatch([]byte(`{"type":"online_users","payload":[{"id":1,"username":"alice"},{"id":2,"username":"bob"}]}`))
	f.router.Dispatch([]byte(`{"type":"online_users","payload":[{"id":3,"username":"carol"}]}`))

	roster := f.roster.Current()
	if len(roster) != 1 || roster[0].Username != "carol" {
		t.Errorf("roster = %v, want exactly [carol]", roster)
	}
}

func TestJoinLeaveAreInformationalOnly(t *testing.T) {
	f := newFixture(t)

	f.router.Dispatch([]byte(`{"type":"online_users","payload":[{"id":1,"username":"alice"}]}`))
	f.router.Dispatch([]byte(`{"type":"user_joined","payload":{"room_id":2,"username":"bob"}}`))
	f.router.Dispatch([]byte(`{"type":"user_left","payload":{"room_id":2,"username":"alice"}}`))

	// Membership only moves on online_users snapshots.
	roster := f.roster.Current()
	if len(roster) != 1 || roster[0].Username != "alice" {
		t.Errorf("roster = %v, want [alice] untouched", roster)
	}
}

func TestReplayedMessageKeptTwice(t *testing.T) {
	f := newFixture(t)

	frame := []byte(`{"type":"new_message","payload":{"id":7,"room_id":1,"content":"dup"}}`)
	f.router.Dispatch(frame)
	f.router.Dispatch(frame)

	if n := f.mailbox.Len(1); n != 2 {
		t.Errorf("mailbox has %d entries, want 2 (no dedup on replay)", n)
	}
}
