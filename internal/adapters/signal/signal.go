package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/app"
	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

var errConnClosed = errors.New("connection closed")

type Options struct {
	ReadLimit     int64
	PingPeriod    time.Duration
	SendBuffer    int
	MaxTextLength int
	RateLimit     int
	RateInterval  time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:     32768,
		PingPeriod:    54 * time.Second,
		SendBuffer:    64,
		MaxTextLength: domain.MaxMessageLength,
		RateLimit:     8,
		RateInterval:  5 * time.Second,
	}
}

// SignalWSController is the connection handler and message router for chat websockets.
type SignalWSController struct {
	Registry *app.Registry
	limiter  *SessionRateLimiter
	opts     Options
}

func NewSignalWSController(reg *app.Registry, clock clockwork.Clock, opts Options) *SignalWSController {
	return &SignalWSController{
		Registry: reg,
		limiter:  NewSessionRateLimiter(clock, opts.RateLimit, opts.RateInterval),
		opts:     opts,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
	reason string
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close drops the socket at once; queued frames are lost.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// CloseWithReason lets the write pump flush queued frames and then send a
// normal-closure frame carrying reason.
func (c *WsSignalConn) CloseWithReason(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.send)
}

func (c *WsSignalConn) closeReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request, issues a fresh session id and starts the pumps.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	sess := core.NewSession(domain.NewSessionID(), conn)
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	if err := sess.Send(protocol.SessionEstablished{SessionID: sess.ID()}); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("session greeting")
	}

	go ctl.writePump(conn)
	go ctl.readPump(ctx, sess, conn)
}
