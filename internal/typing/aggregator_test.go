package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/wire"
)

// recordingSender captures sent frames for inspection.
type recordingSender struct {
	mu     sync.Mutex
	frames []wire.Frame
}

func (r *recordingSender) Send(f wire.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recordingSender) sent() []wire.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

func typingPayload(t *testing.T, f wire.Frame) (roomID int, isTyping bool) {
	t.Helper()
	if f.Type != wire.TypeTyping {
		t.Fatalf("frame type = %q, want typing", f.Type)
	}
	p, ok := f.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", f.Payload)
	}
	return p["room_id"].(int), p["is_typing"].(bool)
}

func TestRemoteSetSemantics(t *testing.T) {
	a := NewAggregator(&recordingSender{}, time.Second, nil)

	a.SetTyping(5, "alice", true)
	a.SetTyping(5, "alice", true) // idempotent
	a.SetTyping(5, "bob", true)

	got := a.Typists(5)
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("typists = %v, want [alice bob]", got)
	}

	a.SetTyping(5, "alice", false)
	got = a.Typists(5)
	if len(got) != 1 || got[0] != "bob" {
		t.Errorf("typists = %v, want [bob]", got)
	}
}

func TestRemoteFalseForUnknownUser(t *testing.T) {
	a := NewAggregator(&recordingSender{}, time.Second, nil)
	a.SetTyping(1, "ghost", false)
	if got := a.Typists(1); len(got) != 0 {
		t.Errorf("typists = %v, want empty", got)
	}
}

func TestRemotePublishesBusEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("typing.", 10)
	defer unsub()

	a := NewAggregator(&recordingSender{}, time.Second, b)
	a.SetTyping(5, "alice", true)

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindTypingChanged || evt.Payload != 5 {
			t.Errorf("event = %q/%v, want typing.changed/5", evt.Kind, evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for typing.changed event")
	}
}

func TestDebounceSingleTrueThenFalse(t *testing.T) {
	rec := &recordingSender{}
	a := NewAggregator(rec, 80*time.Millisecond, nil)

	// A burst of inputs, each well within the idle window.
	for range 5 {
		a.OnInput(3)
		time.Sleep(10 * time.Millisecond)
	}

	// Only the leading true has been sent so far.
	if frames := rec.sent(); len(frames) != 1 {
		t.Fatalf("sent %d frames during burst, want 1", len(frames))
	}
	if room, typing := typingPayload(t, rec.sent()[0]); room != 3 || !typing {
		t.Errorf("first frame = room %d typing %v, want room 3 typing true", room, typing)
	}

	// After the idle window, exactly one trailing false.
	deadline := time.After(time.Second)
	for len(rec.sent()) < 2 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for trailing typing=false")
		case <-time.After(10 * time.Millisecond):
		}
	}
	frames := rec.sent()
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want 2", len(frames))
	}
	if room, typing := typingPayload(t, frames[1]); room != 3 || typing {
		t.Errorf("trailing frame = room %d typing %v, want room 3 typing false", room, typing)
	}
}

func TestFlushCancelsTimerAndSendsFalse(t *testing.T) {
	rec := &recordingSender{}
	a := NewAggregator(rec, time.Hour, nil)

	a.OnInput(2)
	a.Flush(2)

	frames := rec.sent()
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want 2", len(frames))
	}
	if _, typing := typingPayload(t, frames[1]); typing {
		t.Error("flush frame is typing=true, want false")
	}

	// Timer was cancelled: nothing further arrives.
	time.Sleep(50 * time.Millisecond)
	if len(rec.sent()) != 2 {
		t.Errorf("sent %d frames after flush, want 2", len(rec.sent()))
	}

	// A new input after flush starts a fresh burst.
	a.OnInput(2)
	if len(rec.sent()) != 3 {
		t.Errorf("sent %d frames after new burst, want 3", len(rec.sent()))
	}
}

func TestFlushWithoutBurstIsNoop(t *testing.T) {
	rec := &recordingSender{}
	a := NewAggregator(rec, time.Second, nil)

	a.Flush(9)

	if len(rec.sent()) != 0 {
		t.Errorf("sent %d frames, want 0", len(rec.sent()))
	}
}

func TestStopCancelsWithoutBroadcast(t *testing.T) {
	rec := &recordingSender{}
	a := NewAggregator(rec, 30*time.Millisecond, nil)

	a.OnInput(1)
	a.Stop()

	time.Sleep(80 * time.Millisecond)

	frames := rec.sent()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames after stop, want 1 (the leading true only)", len(frames))
	}

	// Inputs after stop are ignored.
	a.OnInput(1)
	if len(rec.sent()) != 1 {
		t.Error("OnInput after Stop still sent a frame")
	}
}

func TestBurstsAreIndependentPerRoom(t *testing.T) {
	rec := &recordingSender{}
	a := NewAggregator(rec, time.Hour, nil)

	a.OnInput(1)
	a.OnInput(2)

	frames := rec.sent()
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want 2 (one true per room)", len(frames))
	}
	r1, _ := typingPayload(t, frames[0])
	r2, _ := typingPayload(t, frames[1])
	if r1 != 1 || r2 != 2 {
		t.Errorf("rooms = %d,%d, want 1,2", r1, r2)
	}
}
