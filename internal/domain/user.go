// Package domain contains entity without logic, just meta-data
package domain

import (
	"github.com/google/uuid"
)

// SessionID is issued by the server once per connection. It is the only
// trusted identity; usernames are labels.
type SessionID string

type Username string

// NewSessionID is a tiny helper to avoid ad-hoc id generation in adapters.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleParticipant Role = "participant"
)
