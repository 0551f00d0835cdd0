package session

import (
	"sync"

	"github.com/Tadwork/code-dojo/internal/models"
)

// DuplicatePolicy decides what happens when a userId that already holds a
// live connection sends a second join into the same room.
type DuplicatePolicy string

const (
	// DuplicateAllow keeps both connections bound to the one roster entry;
	// the entry survives until the last of them closes.
	DuplicateAllow DuplicatePolicy = "allow"
	// DuplicateReplace closes the older connection when a new one joins.
	DuplicateReplace DuplicatePolicy = "replace"
)

// Room holds the authoritative document and the participant roster for one
// session code, plus the set of live connections to broadcast to.
//
// Document updates are last-writer-wins: whichever update the room processes
// last fully replaces the previous value. Concurrent edits from two
// participants are not merged; the losing edit is silently discarded. That is
// the protocol's accepted consistency trade-off, not an error path.
type Room struct {
	Code string

	mu           sync.Mutex
	doc          models.Document
	clients      map[*Client]string // connection -> owning userId ("" before join)
	participants map[string]*models.Participant
	joinOrder    []string
	policy       DuplicatePolicy
}

func NewRoom(code string, seed models.Document, policy DuplicatePolicy) *Room {
	if seed.Language == "" {
		seed.Language = "python"
	}
	return &Room{
		Code:         code,
		doc:          seed,
		clients:      make(map[*Client]string),
		participants: make(map[string]*models.Participant),
		policy:       policy,
	}
}

/*** Connection manager ***/

// Register attaches a connection to the room's broadcast set.
func (r *Room) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		r.clients[c] = ""
	}
}

// Detach removes a connection and, when it owned the last connection for its
// userId, removes the roster entry too. It reports the owning userId, whether
// the roster entry was removed, and how many connections remain.
func (r *Room) Detach(c *Client) (userID string, rosterRemoved bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, attached := r.clients[c]
	if !attached {
		return "", false, len(r.clients)
	}
	delete(r.clients, c)
	if userID != "" && !r.hasConnectionLocked(userID) {
		if _, ok := r.participants[userID]; ok {
			delete(r.participants, userID)
			r.removeJoinOrderLocked(userID)
			rosterRemoved = true
		}
	}
	return userID, rosterRemoved, len(r.clients)
}

func (r *Room) hasConnectionLocked(userID string) bool {
	for _, id := range r.clients {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) removeJoinOrderLocked(userID string) {
	for i, id := range r.joinOrder {
		if id == userID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			return
		}
	}
}

// ConnectionCount reports the number of live connections.
func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast sends msg to every connection except the sender. Sends are
// best-effort: a dead connection is closed so its own read loop can run
// teardown, and delivery to the rest continues.
func (r *Room) Broadcast(sender *Client, msg any) {
	r.mu.Lock()
	targets := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c != sender {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			c.Close()
		}
	}
}

// BroadcastAll sends msg to every connection, the sender included.
func (r *Room) BroadcastAll(msg any) { r.Broadcast(nil, msg) }

/*** Document state (last-writer-wins) ***/

// ApplyCode replaces the document text, and the language when one is given.
func (r *Room) ApplyCode(code, language string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Code = code
	if language != "" {
		r.doc.Language = language
	}
}

// ApplyLanguage replaces only the language tag.
func (r *Room) ApplyLanguage(language string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Language = language
}

// Snapshot returns the current document for the join handshake.
func (r *Room) Snapshot() models.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}
