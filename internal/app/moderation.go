package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// MuteUser mutes target on behalf of the admin. It reports false when the
// target is neither an active nor a grace-period member.
func (r *Registry) MuteUser(ctx context.Context, roomID domain.RoomID, requester domain.SessionID, target domain.Username) (bool, error) {
	return r.setMuted(roomID, requester, target, true)
}

func (r *Registry) UnmuteUser(ctx context.Context, roomID domain.RoomID, requester domain.SessionID, target domain.Username) (bool, error) {
	return r.setMuted(roomID, requester, target, false)
}

func (r *Registry) setMuted(roomID domain.RoomID, requester domain.SessionID, target domain.Username, muted bool) (bool, error) {
	room, err := r.adminRoom(roomID, requester)
	if err != nil {
		return false, err
	}
	defer room.Unlock()

	sid, ok := room.ResolveUsername(target)
	if !ok {
		return false, nil
	}
	verb := "unmuted"
	if muted {
		verb = "muted"
		room.Mute(sid)
	} else {
		room.Unmute(sid)
	}
	r.broadcast(room, protocol.System{Text: string(target) + " was " + verb + " by the admin"})
	r.broadcast(room, protocol.MuteState{MutedUsers: room.MutedUsernames()})
	log.Info().Str("module", "app.registry").Str("room", string(roomID)).Str("target_sid", string(sid)).
		Bool("muted", muted).Msg("mute state changed")
	return true, nil
}

// ExtendRoom migrates the room: a fresh room with a full TTL is allocated,
// members get ROOM_MIGRATION and the old room is destroyed at once.
func (r *Registry) ExtendRoom(ctx context.Context, oldRoomID domain.RoomID, requester domain.SessionID) (domain.RoomID, error) {
	room, err := r.adminRoom(oldRoomID, requester)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	fresh := r.allocate()
	r.destroyLocked(ctx, room, protocol.RoomMigration{NewRoomID: fresh.ID()}, "Room migrated")
	log.Info().Str("module", "app.registry").Str("room", string(oldRoomID)).Str("new_room", string(fresh.ID())).Msg("room migrated")
	return fresh.ID(), nil
}

// adminRoom returns the room locked when requester is its admin.
func (r *Registry) adminRoom(roomID domain.RoomID, requester domain.SessionID) (*core.Room, error) {
	room, ok := r.get(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.Lock()
	if room.Destroyed() {
		room.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	if requester == "" || room.Admin() != requester {
		room.Unlock()
		return nil, domain.ErrNotAdmin
	}
	return room, nil
}
