package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RoomID string

type RoomState string

const (
	RoomActive    RoomState = "active"
	RoomExpiring  RoomState = "expiring"
	RoomDestroyed RoomState = "destroyed"
)

// Lifetime holds the absolute timestamps of one room.
type Lifetime struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	WarningAt time.Time
}

func NewLifetime(now time.Time, ttl, warnBefore time.Duration) Lifetime {
	return Lifetime{
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		WarningAt: now.Add(ttl - warnBefore),
	}
}

// Remaining is never negative.
func (l Lifetime) Remaining(now time.Time) time.Duration {
	return max(0, l.ExpiresAt.Sub(now))
}

// NewRoomID allocates an id for a migrated room. 32 hex chars fit the room id rules.
func NewRoomID() RoomID {
	return RoomID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
