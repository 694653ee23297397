package app

import (
	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
)

// getOrCreate returns the listed room for id, allocating a fresh one when
// there is none. Destroyed rooms are unlisted under their own lock, so a
// caller that finds one destroyed after locking it simply asks again.
func (r *Registry) getOrCreate(id domain.RoomID) *core.Room {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[id]; ok {
		return room
	}
	return r.createLocked(id)
}

func (r *Registry) createLocked(id domain.RoomID) *core.Room {
	life := domain.NewLifetime(r.clock.Now(), r.opts.TTL, r.opts.WarnBefore)
	room := core.NewRoom(id, life, r.opts.HistoryLimit)
	r.rooms[id] = room
	return room
}

// allocate creates a room under a new random id.
func (r *Registry) allocate() *core.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id := domain.NewRoomID()
		if _, taken := r.rooms[id]; !taken {
			return r.createLocked(id)
		}
	}
}

func (r *Registry) get(id domain.RoomID) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry) forget(room *core.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[room.ID()] == room {
		delete(r.rooms, room.ID())
	}
}

func (r *Registry) snapshot() []*core.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

// Info is a read-only view of a listed room.
func (r *Registry) Info(id domain.RoomID) (core.RoomInfo, bool) {
	room, ok := r.get(id)
	if !ok {
		return core.RoomInfo{}, false
	}
	room.Lock()
	defer room.Unlock()
	if room.Destroyed() {
		return core.RoomInfo{}, false
	}
	return core.RoomInfo{
		ID:          room.ID(),
		State:       room.State(),
		MemberCount: room.MemberCount(),
		ExpiresAt:   room.Lifetime().ExpiresAt,
	}, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
