package app

import "github.com/dkeye/Ephemeral/internal/core"

type BackpressureAction int

const (
	KickMember BackpressureAction = iota
	DropFrame
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room *core.Room, member *core.Session) BackpressureAction
}

// SimplePolicy kicks slow members; they can come back through the grace period.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, member *core.Session) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow members connected and only loses the frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(room *core.Room, member *core.Session) BackpressureAction {
	return DropFrame
}

const (
	SlowConsumerKick = "kick"
	SlowConsumerDrop = "drop"
)

// PolicyFor maps a room.slow_consumer setting to its policy.
func PolicyFor(name string) (Policy, bool) {
	switch name {
	case SlowConsumerKick:
		return SimplePolicy{}, true
	case SlowConsumerDrop:
		return DropPolicy{}, true
	}
	return nil, false
}
