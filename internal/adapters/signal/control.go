package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

func (ctl *SignalWSController) handleMute(ctx context.Context, sess *core.Session, target domain.Username, claimed domain.SessionID, mute bool) {
	if !claimMatches(sess, claimed) {
		ctl.replyError(sess, protocol.ErrSessionMismatch)
		return
	}
	roomID, _, ok := sess.Room()
	if !ok {
		ctl.replyError(sess, domain.ErrNotInRoom)
		return
	}
	if target == "" {
		ctl.replyError(sess, protocol.ErrMalformed)
		return
	}

	op := ctl.Registry.UnmuteUser
	if mute {
		op = ctl.Registry.MuteUser
	}
	found, err := op(ctx, roomID, sess.ID(), target)
	if err != nil {
		ctl.replyError(sess, err)
		return
	}
	if !found {
		log.Debug().Str("module", "signal").Str("sid", string(sess.ID())).Str("target", string(target)).Msg("mute target not in room")
	}
}
