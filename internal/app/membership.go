package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

type JoinResult struct {
	RoomID      domain.RoomID
	Admin       domain.Username
	MemberCount int
	Members     []domain.Username
	Role        domain.Role
	SessionID   domain.SessionID
	History     []domain.ChatMessage
	ExpiresAt   time.Time
	Reconnected bool
}

func (j JoinResult) Message() protocol.JoinSuccess {
	return protocol.JoinSuccess{
		RoomID:      j.RoomID,
		Admin:       j.Admin,
		Owner:       j.Admin,
		UserCount:   j.MemberCount,
		Users:       j.Members,
		Role:        j.Role,
		SessionID:   j.SessionID,
		History:     j.History,
		ExpiresAt:   j.ExpiresAt.UnixMilli(),
		Reconnected: j.Reconnected,
	}
}

type LeaveResult struct {
	Admin       domain.Username
	MemberCount int
	Username    domain.Username
}

// JoinRoom admits sess to roomID under username, creating the room on first use.
// JOIN_SUCCESS is delivered to sess before the join notice so history lands first.
func (r *Registry) JoinRoom(ctx context.Context, roomID domain.RoomID, username domain.Username, sess *core.Session) (JoinResult, error) {
	if _, _, ok := sess.Room(); ok {
		return JoinResult{}, domain.ErrAlreadyInRoom
	}
	for {
		room := r.getOrCreate(roomID)
		room.Lock()
		if room.Destroyed() {
			room.Unlock()
			continue
		}
		res, err := r.joinLocked(ctx, room, username, sess)
		room.Unlock()
		return res, err
	}
}

func (r *Registry) joinLocked(ctx context.Context, room *core.Room, username domain.Username, sess *core.Session) (JoinResult, error) {
	if room.HasUsername(username) {
		return JoinResult{}, domain.ErrUsernameTaken
	}
	room.AddClient(sess, username)
	res := r.admit(ctx, room, sess, false)
	r.broadcast(room, noticef(room, "%s joined the room", username))
	log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Str("sid", string(sess.ID())).
		Str("role", string(res.Role)).Msg("joined")
	return res, nil
}

// ReconnectSession re-admits a grace-period member by username under the new
// session id, keeping its role and mute state. Without a matching grace entry
// it behaves exactly like JoinRoom.
func (r *Registry) ReconnectSession(ctx context.Context, roomID domain.RoomID, username domain.Username, sess *core.Session) (JoinResult, error) {
	if _, _, ok := sess.Room(); ok {
		return JoinResult{}, domain.ErrAlreadyInRoom
	}
	if room, ok := r.get(roomID); ok {
		room.Lock()
		if res, ok := r.reconnectLocked(ctx, room, username, sess); ok {
			room.Unlock()
			return res, nil
		}
		room.Unlock()
	}
	return r.JoinRoom(ctx, roomID, username, sess)
}

func (r *Registry) reconnectLocked(ctx context.Context, room *core.Room, username domain.Username, sess *core.Session) (JoinResult, bool) {
	if room.Destroyed() || room.HasUsername(username) {
		return JoinResult{}, false
	}
	prev, ok := room.TakeDisconnected(username)
	if !ok {
		return JoinResult{}, false
	}
	room.AddClient(sess, username)
	room.Rebind(prev.SessionID, sess.ID())
	res := r.admit(ctx, room, sess, true)
	r.broadcast(room, noticef(room, "%s reconnected", username))
	log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Str("sid", string(sess.ID())).
		Str("prev_sid", string(prev.SessionID)).Str("role", string(res.Role)).Msg("reconnected")
	return res, true
}

func (r *Registry) admit(ctx context.Context, room *core.Room, sess *core.Session, reconnected bool) JoinResult {
	res := JoinResult{
		RoomID:      room.ID(),
		Admin:       room.AdminName(),
		MemberCount: room.MemberCount(),
		Members:     room.Members(),
		Role:        room.Role(sess.ID()),
		SessionID:   sess.ID(),
		History:     r.history(ctx, room.ID()),
		ExpiresAt:   room.Lifetime().ExpiresAt,
		Reconnected: reconnected,
	}
	if err := sess.Send(res.Message()); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("sid", string(sess.ID())).Msg("join reply not queued")
	}
	return res
}

// MarkDisconnected handles a transport close. Intentional leaves finalize at
// once; anything else parks the member in the grace period.
func (r *Registry) MarkDisconnected(ctx context.Context, sess *core.Session) {
	roomID, username, ok := sess.Room()
	if !ok {
		return
	}
	room, ok := r.get(roomID)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()
	if room.Destroyed() {
		return
	}
	if _, ok := room.Client(sess.ID()); !ok {
		return
	}
	if sess.Leaving() {
		r.finalizeLocked(ctx, room, sess.ID())
		return
	}

	sid := sess.ID()
	room.RemoveClient(sid)
	timer := r.clock.AfterFunc(r.opts.GracePeriod, func() { r.expireGrace(room, sid) })
	room.AddDisconnected(domain.Member{SessionID: sid, Username: username}, r.clock.Now().Add(r.opts.GracePeriod), timer)
	r.broadcast(room, noticef(room, "%s disconnected", username))
	log.Info().Str("module", "app.registry").Str("room", string(roomID)).Str("sid", string(sid)).
		Dur("grace", r.opts.GracePeriod).Msg("disconnected")
}

// expireGrace runs on the grace timer. A reconnect or leave that won the room
// lock first has already removed the entry, which makes this a no-op.
func (r *Registry) expireGrace(room *core.Room, sid domain.SessionID) {
	room.Lock()
	defer room.Unlock()
	if room.Destroyed() {
		return
	}
	if _, ok := room.Disconnected(sid); !ok {
		return
	}
	log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Str("sid", string(sid)).Msg("grace period elapsed")
	r.finalizeLocked(context.Background(), room, sid)
}

// FinalizeLeave removes sess from its room immediately, skipping the grace period.
func (r *Registry) FinalizeLeave(ctx context.Context, sess *core.Session) (LeaveResult, error) {
	roomID, _, ok := sess.Room()
	if !ok {
		return LeaveResult{}, domain.ErrNotInRoom
	}
	room, ok := r.get(roomID)
	if !ok {
		return LeaveResult{}, domain.ErrRoomNotFound
	}
	room.Lock()
	defer room.Unlock()
	if room.Destroyed() {
		return LeaveResult{}, domain.ErrRoomNotFound
	}
	if _, ok := room.Client(sess.ID()); !ok {
		return LeaveResult{}, domain.ErrNotInRoom
	}
	sess.MarkLeaving()
	return r.finalizeLocked(ctx, room, sess.ID()), nil
}

func (r *Registry) finalizeLocked(ctx context.Context, room *core.Room, sid domain.SessionID) LeaveResult {
	username, _ := room.UsernameOf(sid)
	room.RemoveClient(sid)
	room.DropDisconnected(sid)
	room.Unmute(sid)

	wasAdmin := room.Admin() == sid
	if wasAdmin {
		room.SetAdmin(room.NextAdmin())
	}
	res := LeaveResult{Admin: room.AdminName(), MemberCount: room.MemberCount(), Username: username}

	if room.Empty() {
		r.destroyLocked(ctx, room, nil, "")
		log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Msg("last member left")
		return res
	}
	r.broadcast(room, noticef(room, "%s left the room", username))
	if wasAdmin && res.Admin != "" {
		r.broadcast(room, noticef(room, "%s is now the admin", res.Admin))
	}
	log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Str("sid", string(sid)).
		Str("admin", string(res.Admin)).Msg("left")
	return res
}
