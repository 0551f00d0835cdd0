package session

import (
	"sync"

	"github.com/Tadwork/code-dojo/internal/models"
)

// Hub is the process-wide registry of active collaboration rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	policy DuplicatePolicy
}

func NewHub(policy DuplicatePolicy) *Hub {
	if policy == "" {
		policy = DuplicateAllow
	}
	return &Hub{rooms: make(map[string]*Room), policy: policy}
}

// GetOrCreate returns the room for a session code, creating it seeded with
// the stored document on first connection. The seed is ignored for an
// already-live room; its in-memory document is authoritative.
func (h *Hub) GetOrCreate(code string, seed models.Document) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[code]; ok {
		return r
	}
	r := NewRoom(code, seed, h.policy)
	h.rooms[code] = r
	return r
}

func (h *Hub) Get(code string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[code]
	return r, ok
}

// RemoveIfEmpty discards a room once its last connection is gone. Room state
// does not survive zero-participant gaps; the session store is what persists
// the document across them.
func (h *Hub) RemoveIfEmpty(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[code]
	if !ok || r.ConnectionCount() > 0 {
		return false
	}
	delete(h.rooms, code)
	return true
}

// ActiveUsers reports the roster size for a session code, 0 when no room is
// live.
func (h *Hub) ActiveUsers(code string) int {
	h.mu.RLock()
	r, ok := h.rooms[code]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.ParticipantCount()
}

// RoomCount reports how many rooms are live.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
