package agent

import "github.com/google/uuid"

// Identity is the client-side participant identity. It is generated once and
// reused across reconnects so the server can recognize a returning userId.
type Identity struct {
	UserID      string
	DisplayName string
}

// IdentityProvider supplies the identity the agent joins with. Injecting it
// keeps identity out of ambient state and lets tests pin fixed ids.
type IdentityProvider interface {
	Identity() Identity
}

// StaticIdentity is an IdentityProvider with fixed values.
type StaticIdentity Identity

func (s StaticIdentity) Identity() Identity { return Identity(s) }

// NewGeneratedIdentity creates a fresh random identity. Callers that want the
// identity to survive restarts persist it themselves and rebuild a
// StaticIdentity from what they stored.
func NewGeneratedIdentity(displayName string) StaticIdentity {
	return StaticIdentity{UserID: uuid.New().String(), DisplayName: displayName}
}
