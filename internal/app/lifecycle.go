package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// CheckLifecycle applies the time-driven transitions to every room: expired
// rooms are destroyed, rooms past their warning time warn their admin.
func (r *Registry) CheckLifecycle(ctx context.Context) {
	now := r.clock.Now()
	for _, room := range r.snapshot() {
		room.Lock()
		r.checkRoomLocked(ctx, room, now)
		room.Unlock()
	}
}

func (r *Registry) checkRoomLocked(ctx context.Context, room *core.Room, now time.Time) {
	if room.Destroyed() {
		return
	}
	life := room.Lifetime()
	if !now.Before(life.ExpiresAt) {
		log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID())).Msg("room expired")
		r.destroyLocked(ctx, room, protocol.RoomExpired{Text: "Room has expired"}, "Room expired")
		return
	}
	if now.Before(life.WarningAt) || room.WarningSent() {
		return
	}

	// An admin in the grace period gets the warning on a later sweep.
	warned := false
	if admin, ok := room.Client(room.Admin()); ok {
		left := int64(life.Remaining(now) / time.Second)
		err := admin.Send(protocol.RoomWarning{
			TimeLeft: left,
			Text:     fmt.Sprintf("Room will expire in %d seconds", left),
		})
		if err != nil {
			log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(room.ID())).Msg("warning not queued")
		} else {
			warned = true
		}
	}
	room.MarkExpiring(warned)
	log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID())).Bool("warned", warned).Msg("room expiring")
}

// Run sweeps every SweepInterval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	log.Info().Str("module", "app.lifecycle").Dur("interval", r.opts.SweepInterval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.lifecycle").Msg("sweeper stopped")
			return ctx.Err()
		case <-ticker.Chan():
			r.CheckLifecycle(ctx)
		}
	}
}
