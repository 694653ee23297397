package signal

import (
	"context"
	"errors"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

func (ctl *SignalWSController) handleText(ctx context.Context, sess *core.Session, m protocol.SendText) {
	if !ctl.limiter.Allow(sess.ID()) {
		ctl.replyError(sess, domain.ErrRateLimited)
		return
	}
	text, err := domain.PrepareText(m.Text, ctl.opts.MaxTextLength)
	if err != nil {
		ctl.replyError(sess, err)
		return
	}
	if _, err := ctl.Registry.PostMessage(ctx, sess, text); err != nil {
		ctl.replyChatError(sess, err)
	}
}

func (ctl *SignalWSController) handleDelete(ctx context.Context, sess *core.Session, m protocol.DeleteMessage) {
	if m.MessageID == "" {
		ctl.replyError(sess, protocol.ErrMalformed)
		return
	}
	if err := ctl.Registry.DeleteMessage(ctx, sess, m.MessageID); err != nil {
		ctl.replyChatError(sess, err)
	}
}

// replyChatError tells muted senders through a SYSTEM notice, like the room does.
func (ctl *SignalWSController) replyChatError(sess *core.Session, err error) {
	if errors.Is(err, domain.ErrMuted) {
		ctl.send(sess, protocol.System{Text: domain.ErrMuted.Error()})
		return
	}
	ctl.replyError(sess, err)
}
