package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// Options are the lifecycle constants of every room.
type Options struct {
	TTL           time.Duration
	WarnBefore    time.Duration
	GracePeriod   time.Duration
	SweepInterval time.Duration
	CloseDelay    time.Duration
	StoreTimeout  time.Duration
	HistoryLimit  int
}

func DefaultOptions() Options {
	return Options{
		TTL:           15 * time.Minute,
		WarnBefore:    60 * time.Second,
		GracePeriod:   20 * time.Second,
		SweepInterval: 5 * time.Second,
		CloseDelay:    500 * time.Millisecond,
		StoreTimeout:  2 * time.Second,
		HistoryLimit:  50,
	}
}

// Registry is the room lifecycle manager: it owns the room map and is the
// only writer of Room state. Each operation holds the room lock for its
// whole read-modify-write; r.mu only guards the map and is never held while
// acquiring a room lock.
type Registry struct {
	opts   Options
	store  core.MessageStore
	clock  clockwork.Clock
	policy Policy

	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRegistry(store core.MessageStore, clock clockwork.Clock, policy Policy, opts Options) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		opts:   opts,
		store:  store,
		clock:  clock,
		policy: policy,
		rooms:  make(map[domain.RoomID]*core.Room),
	}
}

func (r *Registry) Options() Options { return r.opts }

// broadcast fans msg out and applies the backpressure policy to slow members.
func (r *Registry) broadcast(room *core.Room, msg protocol.ServerMessage) {
	res := room.Broadcast(msg)
	for _, slow := range res.Dropped {
		switch r.policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.registry").Str("room", string(room.ID())).
				Str("sid", string(slow.ID())).Msg("kicking slow member")
			slow.Signal().Close()
		case DropFrame:
			log.Debug().Str("module", "app.registry").Str("room", string(room.ID())).
				Str("sid", string(slow.ID())).Msg("dropped frame for slow member")
		}
	}
}

func notice(room *core.Room, text string) protocol.System {
	return protocol.System{
		Text:      text,
		UserCount: room.MemberCount(),
		Users:     room.Members(),
		Admin:     room.AdminName(),
	}
}

func noticef(room *core.Room, format string, args ...any) protocol.System {
	return notice(room, fmt.Sprintf(format, args...))
}

// history never fails: store errors degrade to an empty history.
func (r *Registry) history(ctx context.Context, id domain.RoomID) []domain.ChatMessage {
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()
	msgs, err := r.store.List(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("room", string(id)).Msg("history unavailable")
		return []domain.ChatMessage{}
	}
	slices.SortStableFunc(msgs, func(a, b domain.ChatMessage) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	if n := len(msgs) - r.opts.HistoryLimit; n > 0 {
		msgs = msgs[n:]
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs
}

func (r *Registry) record(ctx context.Context, room *core.Room, msg domain.ChatMessage) {
	ttl := room.Lifetime().Remaining(r.clock.Now())
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()
	if err := r.store.Save(ctx, room.ID(), msg, ttl); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("room", string(room.ID())).Msg("history write failed")
	}
}

func (r *Registry) purge(ctx context.Context, id domain.RoomID) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()
	if err := r.store.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("room", string(id)).Msg("history purge failed")
	}
}

// destroyLocked tears the room down, unlists it and purges its history.
// A nil notice is used for organic destruction where nobody is left to notify.
func (r *Registry) destroyLocked(ctx context.Context, room *core.Room, msg protocol.ServerMessage, reason string) {
	room.Destroy(msg, r.opts.CloseDelay, reason)
	r.forget(room)
	r.purge(ctx, room.ID())
}

// Shutdown expires every room. Used on process exit, since room state does not survive it.
func (r *Registry) Shutdown(ctx context.Context) {
	for _, room := range r.snapshot() {
		room.Lock()
		if !room.Destroyed() {
			r.destroyLocked(ctx, room, protocol.RoomExpired{Text: "Server is shutting down"}, "Room expired")
		}
		room.Unlock()
	}
	log.Info().Str("module", "app.registry").Msg("all rooms expired")
}
