package domain

import "time"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	SessionID SessionID
	Username  Username
}

// Disconnected is a member waiting out its reconnect grace period.
type Disconnected struct {
	Member
	Deadline time.Time
}
