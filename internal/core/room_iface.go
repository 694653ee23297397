package core

import (
	"time"

	"github.com/dkeye/Ephemeral/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the registry.
type PublishResult struct {
	SendTo  int
	Dropped []*Session
}

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// RoomInfo is a read-only view for APIs (no session ids).
type RoomInfo struct {
	ID          domain.RoomID    `json:"id"`
	State       domain.RoomState `json:"state"`
	MemberCount int              `json:"memberCount"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}
