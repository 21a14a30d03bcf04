package typing

import (
	"sort"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/wire"
)

// Sender transmits an outbound frame. Send is best-effort: when the
// connection is down the frame is silently dropped.
type Sender interface {
	Send(f wire.Frame)
}

// Aggregator tracks who is typing in each room and debounces the
// local user's own typing broadcasts.
//
// Remote side: SetTyping maintains a per-room set of usernames, keyed
// by username, added on is_typing=true and removed on is_typing=false.
// An entry persists until an explicit false arrives; there is no
// expiry.
//
// Local side: OnInput broadcasts typing=true on the first input of a
// burst and arms a per-room idle timer. If no further input arrives
// within the idle window, typing=false is broadcast. Flush (called on
// message submit) cancels the timer and broadcasts false immediately.
type Aggregator struct {
	mu      sync.Mutex
	idle    time.Duration
	sender  Sender
	bus     *bus.Bus
	remote  map[int]map[string]struct{}
	local   map[int]*burst
	stopped bool
}

// burst is one active local typing burst. gen guards against a timer
// callback that fired concurrently with a Reset or Flush.
type burst struct {
	timer *time.Timer
	gen   int
}

// NewAggregator creates an aggregator with the given idle window.
func NewAggregator(sender Sender, idle time.Duration, b *bus.Bus) *Aggregator {
	return &Aggregator{
		idle:   idle,
		sender: sender,
		bus:    b,
		remote: make(map[int]map[string]struct{}),
		local:  make(map[int]*burst),
	}
}

// SetTyping records a remote user's typing state for a room.
// Idempotent: set semantics keyed by username.
func (a *Aggregator) SetTyping(roomID int, username string, isTyping bool) {
	a.mu.Lock()
	if isTyping {
		if a.remote[roomID] == nil {
			a.remote[roomID] = make(map[string]struct{})
		}
		a.remote[roomID][username] = struct{}{}
	} else {
		delete(a.remote[roomID], username)
	}
	a.mu.Unlock()

	if a.bus != nil {
		a.bus.Publish(bus.KindTypingChanged, roomID)
	}
}

// Typists returns the usernames currently typing in a room, sorted.
func (a *Aggregator) Typists(roomID int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.remote[roomID]))
	for name := range a.remote[roomID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnInput records a local composition change in a room. The first
// input since idle broadcasts typing=true; every input re-arms the
// idle timer.
func (a *Aggregator) OnInput(roomID int) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	b, active := a.local[roomID]
	if active {
		// Re-arm with a fresh timer. A callback from the old timer
		// that is already in flight sees a stale gen and does nothing.
		b.timer.Stop()
		b.gen++
		gen := b.gen
		b.timer = time.AfterFunc(a.idle, func() { a.idleFired(roomID, gen) })
		a.mu.Unlock()
		return
	}
	b = &burst{}
	a.local[roomID] = b
	gen := b.gen
	b.timer = time.AfterFunc(a.idle, func() { a.idleFired(roomID, gen) })
	a.mu.Unlock()

	a.sender.Send(wire.Typing(roomID, true))
}

// Flush ends the local burst for a room immediately: the idle timer is
// cancelled and typing=false is broadcast. Called when a message is
// submitted so the room does not show a stale typing state. No-op if
// no burst is active.
func (a *Aggregator) Flush(roomID int) {
	a.mu.Lock()
	b, active := a.local[roomID]
	if !active {
		a.mu.Unlock()
		return
	}
	b.timer.Stop()
	b.gen++
	delete(a.local, roomID)
	stopped := a.stopped
	a.mu.Unlock()

	if !stopped {
		a.sender.Send(wire.Typing(roomID, false))
	}
}

// Stop cancels every pending idle timer without broadcasting. Nothing
// may be sent after teardown.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for roomID, b := range a.local {
		b.timer.Stop()
		b.gen++
		delete(a.local, roomID)
	}
}

func (a *Aggregator) idleFired(roomID, gen int) {
	a.mu.Lock()
	b, active := a.local[roomID]
	if !active || b.gen != gen || a.stopped {
		a.mu.Unlock()
		return
	}
	delete(a.local, roomID)
	a.mu.Unlock()

	a.sender.Send(wire.Typing(roomID, false))
}
