package mailbox

import (
	"sync"

	"github.com/termchat/termchat/internal/wire"
)

// Store holds the ordered per-room message sequences. Sequence order
// is arrival order: the order Hydrate/Append calls occurred, which is
// the order the router dispatched frames. Messages are kept in memory
// only.
type Store struct {
	mu    sync.RWMutex
	rooms map[int][]wire.Message
}

// NewStore creates an empty mailbox store.
func NewStore() *Store {
	return &Store{rooms: make(map[int][]wire.Message)}
}

// Hydrate replaces the entire sequence for a room with the given
// ordered history. It overwrites; it does not merge.
func (s *Store) Hydrate(roomID int, msgs []wire.Message) {
	seq := make([]wire.Message, len(msgs))
	copy(seq, msgs)

	s.mu.Lock()
	s.rooms[roomID] = seq
	s.mu.Unlock()
}

// Append adds a message to the tail of its room's sequence. No
// deduplication by message ID is performed; a replayed frame appears
// twice.
func (s *Store) Append(msg wire.Message) {
	s.mu.Lock()
	s.rooms[msg.RoomID] = append(s.rooms[msg.RoomID], msg)
	s.mu.Unlock()
}

// Get returns a copy of the room's sequence, empty if the room has no
// entries yet.
func (s *Store) Get(roomID int) []wire.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.rooms[roomID]
	out := make([]wire.Message, len(seq))
	copy(out, seq)
	return out
}

// Len returns the number of messages held for a room.
func (s *Store) Len(roomID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}
