package mailbox

import (
	"sync"

	"github.com/termchat/termchat/internal/wire"
)

// Handler receives every new message delivered through the router,
// regardless of room.
type Handler func(msg wire.Message)

// Registry lets observers register for new-message notifications.
// Handlers run synchronously on the dispatch path, in registration
// order.
type Registry struct {
	mu       sync.Mutex
	handlers []*entry
	next     int
}

type entry struct {
	id int
	fn Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler and returns a disposer. The disposer is
// idempotent; calling it more than once is a no-op.
func (r *Registry) Register(fn Handler) (dispose func()) {
	r.mu.Lock()
	e := &entry{id: r.next, fn: fn}
	r.next++
	r.handlers = append(r.handlers, e)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, h := range r.handlers {
			if h.id == e.id {
				r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
				return
			}
		}
	}
}

// Notify invokes every registered handler with the message, in
// registration order.
func (r *Registry) Notify(msg wire.Message) {
	r.mu.Lock()
	handlers := make([]*entry, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	for _, h := range handlers {
		h.fn(msg)
	}
}
