package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(c *WsSignalConn) {
	ping := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason())
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sess *core.Session, c *WsSignalConn) {
	sid := sess.ID()
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Bool("leaving", sess.Leaving()).Msg("readPump closing")
		ctl.Registry.MarkDisconnected(ctx, sess)
		ctl.limiter.Forget(sid)
		c.Close()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(ctx, sess, data)
	}
}

// handleSignal routes one inbound frame. Errors are answered on the same
// connection; nothing a client sends closes it from here.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sess *core.Session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "signal").Str("sid", string(sess.ID())).Interface("panic", r).Msg("handler panic")
			ctl.replyError(sess, errors.New("Internal error"))
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad frame")
		ctl.replyError(sess, err)
		return
	}

	switch m := msg.(type) {
	case protocol.JoinRoom:
		ctl.handleJoin(ctx, sess, m)
	case protocol.SendText:
		ctl.handleText(ctx, sess, m)
	case protocol.DeleteMessage:
		ctl.handleDelete(ctx, sess, m)
	case protocol.MuteUser:
		ctl.handleMute(ctx, sess, m.TargetUsername, m.SessionID, true)
	case protocol.UnmuteUser:
		ctl.handleMute(ctx, sess, m.TargetUsername, m.SessionID, false)
	case protocol.ExtendRoom:
		ctl.handleExtend(ctx, sess)
	case protocol.LeaveRoom:
		ctl.handleLeave(ctx, sess, m)
	default:
		ctl.replyError(sess, &protocol.UnknownTypeError{Type: string(msg.Kind())})
	}
}

// claimMatches accepts an absent claim; a present one must be this connection's id.
func claimMatches(sess *core.Session, claimed domain.SessionID) bool {
	return claimed == "" || claimed == sess.ID()
}

func (ctl *SignalWSController) replyError(sess *core.Session, err error) {
	text := err.Error()
	if errors.Is(err, protocol.ErrMalformed) {
		text = protocol.ErrMalformed.Error()
	}
	ctl.send(sess, protocol.Error{Message: text})
}

func (ctl *SignalWSController) send(sess *core.Session, msg protocol.ServerMessage) {
	if err := sess.Send(msg); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).
			Str("type", string(msg.Kind())).Msg("reply not queued")
	}
}
