package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// handleJoin always tries a reconnect first: a client coming back after a
// drop has a new session id and is matched by username.
func (ctl *SignalWSController) handleJoin(ctx context.Context, sess *core.Session, m protocol.JoinRoom) {
	if !claimMatches(sess, m.SessionID) {
		ctl.replyError(sess, protocol.ErrSessionMismatch)
		return
	}
	if err := domain.ValidateJoin(domain.JoinRequest{RoomID: m.RoomID, Username: m.Username}); err != nil {
		ctl.replyError(sess, err)
		return
	}

	// JOIN_SUCCESS is delivered by the registry, ahead of the join notice.
	res, err := ctl.Registry.ReconnectSession(ctx, m.RoomID, m.Username, sess)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Str("room", string(m.RoomID)).Msg("join rejected")
		ctl.replyError(sess, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", string(res.RoomID)).
		Bool("reconnected", res.Reconnected).Msg("join")
}

// handleLeave finalizes at once and closes the socket; the close that follows
// skips the grace period.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sess *core.Session, m protocol.LeaveRoom) {
	if m.SessionID != sess.ID() {
		ctl.replyError(sess, protocol.ErrSessionMismatch)
		return
	}
	sess.MarkLeaving()
	if _, err := ctl.Registry.FinalizeLeave(ctx, sess); err != nil && !errors.Is(err, domain.ErrNotInRoom) {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("leave")
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Msg("leave")
	sess.Signal().CloseWithReason("Intentional leave")
}

func (ctl *SignalWSController) handleExtend(ctx context.Context, sess *core.Session) {
	roomID, _, ok := sess.Room()
	if !ok {
		ctl.replyError(sess, domain.ErrNotInRoom)
		return
	}
	newID, err := ctl.Registry.ExtendRoom(ctx, roomID, sess.ID())
	if err != nil {
		ctl.replyError(sess, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", string(roomID)).
		Str("new_room", string(newID)).Msg("extend")
}
