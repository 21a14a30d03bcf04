package presence

import (
	"sync"

	"github.com/termchat/termchat/internal/wire"
)

// Tracker holds the online-user roster. The roster is always a full
// snapshot from the most recent online_users frame; there is no
// incremental add/remove path.
type Tracker struct {
	mu    sync.RWMutex
	users []wire.User
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Replace overwrites the roster in full.
func (t *Tracker) Replace(users []wire.User) {
	snapshot := make([]wire.User, len(users))
	copy(snapshot, users)

	t.mu.Lock()
	t.users = snapshot
	t.mu.Unlock()
}

// Current returns a copy of the roster.
func (t *Tracker) Current() []wire.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]wire.User, len(t.users))
	copy(out, t.users)
	return out
}

// Count returns the roster size.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

// Online reports whether a user ID is in the roster.
func (t *Tracker) Online(userID int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, u := range t.users {
		if u.ID == userID {
			return true
		}
	}
	return false
}
