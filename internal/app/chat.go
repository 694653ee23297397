package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// PostMessage broadcasts text, already sanitised by domain.PrepareText, from
// sess to its room and writes it through to the store.
func (r *Registry) PostMessage(ctx context.Context, sess *core.Session, text string) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.withMember(sess, func(room *core.Room, username domain.Username) error {
		if room.IsMuted(sess.ID()) {
			return domain.ErrMuted
		}
		msg = domain.NewChatMessage(username, text, r.clock.Now())
		r.broadcast(room, protocol.ChatFrom(msg))
		room.RememberAuthor(msg.ID, username)
		r.record(ctx, room, msg)
		return nil
	})
	return msg, err
}

// DeleteMessage removes a recent message. Authors may delete their own
// messages, the admin may delete any.
func (r *Registry) DeleteMessage(ctx context.Context, sess *core.Session, messageID string) error {
	return r.withMember(sess, func(room *core.Room, username domain.Username) error {
		if room.IsMuted(sess.ID()) {
			return domain.ErrMuted
		}
		author, ok := room.Author(messageID)
		if !ok {
			return domain.ErrMessageNotFound
		}
		if author != username && room.Admin() != sess.ID() {
			return domain.ErrNotAdmin
		}
		room.ForgetAuthor(messageID)
		r.removeStored(ctx, room.ID(), messageID)
		r.broadcast(room, protocol.MessageDeleted{MessageID: messageID, Username: author})
		log.Info().Str("module", "app.registry").Str("room", string(room.ID())).Str("sid", string(sess.ID())).
			Str("message", messageID).Msg("message deleted")
		return nil
	})
}

func (r *Registry) removeStored(ctx context.Context, id domain.RoomID, messageID string) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()
	if err := r.store.Remove(ctx, id, messageID); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("room", string(id)).Msg("history remove failed")
	}
}

// withMember runs fn under the room lock of the room sess is active in.
func (r *Registry) withMember(sess *core.Session, fn func(room *core.Room, username domain.Username) error) error {
	roomID, username, ok := sess.Room()
	if !ok {
		return domain.ErrNotInRoom
	}
	room, ok := r.get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Lock()
	defer room.Unlock()
	if room.Destroyed() {
		return domain.ErrRoomNotFound
	}
	if _, ok := room.Client(sess.ID()); !ok {
		return domain.ErrNotInRoom
	}
	return fn(room, username)
}
