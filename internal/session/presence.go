package session

import "github.com/Tadwork/code-dojo/internal/models"

// cursorPalette disambiguates participants visually. Colors are handed out
// in order, skipping ones already held by an active participant; once the
// palette is exhausted repeats are allowed.
var cursorPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E9", "#F8B500", "#6C5CE7",
}

// Join admits a connection into the roster. A userId already active in the
// room keeps its existing color and display name (the reconnect case). The
// returned displaced client is non-nil only under the replace policy, when an
// older connection for the same userId must be closed by the caller.
func (r *Room) Join(c *Client, userID, displayName string) (self models.Participant, others []models.Participant, displaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == DuplicateReplace {
		for existing, id := range r.clients {
			if id == userID && existing != c {
				delete(r.clients, existing)
				displaced = existing
				break
			}
		}
	}
	r.clients[c] = userID

	p, ok := r.participants[userID]
	if !ok {
		p = &models.Participant{
			UserID:      userID,
			DisplayName: displayName,
			Color:       r.pickColorLocked(),
		}
		r.participants[userID] = p
		r.joinOrder = append(r.joinOrder, userID)
	}

	others = make([]models.Participant, 0, len(r.participants)-1)
	for _, id := range r.joinOrder {
		if id == userID {
			continue
		}
		others = append(others, *r.participants[id])
	}
	return *p, others, displaced
}

func (r *Room) pickColorLocked() string {
	inUse := make(map[string]bool, len(r.participants))
	for _, p := range r.participants {
		inUse[p.Color] = true
	}
	for _, color := range cursorPalette {
		if !inUse[color] {
			return color
		}
	}
	return cursorPalette[len(r.participants)%len(cursorPalette)]
}

// Leave removes a userId from the roster. Idempotent: leaving an absent
// participant reports false and has no side effects.
func (r *Room) Leave(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[userID]; !ok {
		return false
	}
	delete(r.participants, userID)
	r.removeJoinOrderLocked(userID)
	return true
}

// UpdateCursor overwrites a participant's last-known cursor position. No
// bounds checking against the document happens here; that is a UI concern.
func (r *Room) UpdateCursor(userID string, pos *models.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return false
	}
	p.Cursor = pos
	return true
}

// UpdateSelection overwrites a participant's last-known selection range.
func (r *Room) UpdateSelection(userID string, sel *models.Selection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return false
	}
	p.Selection = sel
	return true
}

// Participants lists the roster in join order.
func (r *Room) Participants() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Participant, 0, len(r.participants))
	for _, id := range r.joinOrder {
		out = append(out, *r.participants[id])
	}
	return out
}

// ParticipantCount reports the roster size.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}
