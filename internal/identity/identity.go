// Package identity decides whether a session subject maps to a durable
// server-side identity or to a local fallback scope.
package identity

import (
	"errors"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no authenticated session")

// Identity is a resolved user identifier. Durable identities live in the
// shared store; everything else is served from local fallback storage so
// guest and test accounts never provision backend rows.
type Identity struct {
	id      string
	durable bool
}

// Resolve classifies a session subject. Subjects in UUID form are durable;
// any other non-empty subject gets a fallback identity. An empty subject
// means no session and disables all reward operations.
func Resolve(subject string) (Identity, error) {
	if subject == "" {
		return Identity{}, ErrNoSession
	}

	_, err := uuid.Parse(subject)

	return Identity{
		id:      subject,
		durable: err == nil,
	}, nil
}

func (i Identity) ID() string {
	return i.id
}

// Durable reports whether the identity is backed by the shared store.
func (i Identity) Durable() bool {
	return i.durable
}
