package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
)

func TestPostMessage_BroadcastsAndRecords(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	alice, aliceConn, _ := f.join(t, "r1_room", "alice", "S1")
	_, bob, _ := f.join(t, "r1_room", "bobby", "S2")

	f.clock.Advance(time.Minute)
	f.store.EXPECT().
		Save(gomock.Any(), domain.RoomID("r1_room"), gomock.Any(), 14*time.Minute).
		DoAndReturn(func(_ context.Context, _ domain.RoomID, m domain.ChatMessage, _ time.Duration) error {
			require.Equal(t, domain.Username("alice"), m.Username)
			require.Equal(t, domain.MessageTypeChat, m.Type)
			return nil
		})

	msg, err := f.reg.PostMessage(context.Background(), alice, "hello")
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().UnixMilli(), msg.Timestamp)

	for _, c := range []*recorder{aliceConn, bob} {
		got := c.ofType("MESSAGE")
		require.Len(t, got, 1)
		require.Equal(t, msg.ID, got[0]["id"])
		require.Equal(t, "alice", got[0]["username"])
		require.Equal(t, "hello", got[0]["text"])
	}
}

func TestPostMessage_NotInRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.PostMessage(context.Background(), core.NewSession("S1", &recorder{}), "hello")
	require.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t)
	f.quietStore()
	alice, aliceConn, _ := f.join(t, "r1_room", "alice", "S1")
	bob, _, _ := f.join(t, "r1_room", "bobby", "S2")
	ctx := context.Background()

	fromAlice, err := f.reg.PostMessage(ctx, alice, "one")
	require.NoError(t, err)
	fromBob, err := f.reg.PostMessage(ctx, bob, "two")
	require.NoError(t, err)
	fromBob2, err := f.reg.PostMessage(ctx, bob, "three")
	require.NoError(t, err)

	require.ErrorIs(t, f.reg.DeleteMessage(ctx, bob, fromAlice.ID), domain.ErrNotAdmin)
	require.ErrorIs(t, f.reg.DeleteMessage(ctx, bob, "missing"), domain.ErrMessageNotFound)

	// author deletes own, admin deletes anyone's
	require.NoError(t, f.reg.DeleteMessage(ctx, bob, fromBob.ID))
	require.NoError(t, f.reg.DeleteMessage(ctx, alice, fromBob2.ID))
	require.ErrorIs(t, f.reg.DeleteMessage(ctx, alice, fromBob.ID), domain.ErrMessageNotFound)

	deleted := aliceConn.ofType("DELETE_MESSAGE")
	require.Len(t, deleted, 2)
	require.Equal(t, fromBob.ID, deleted[0]["messageId"])
	require.Equal(t, "bobby", deleted[0]["username"])
}

func TestDeleteMessage_RemovesFromStore(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	alice, _, _ := f.join(t, "r1_room", "alice", "S1")

	msg, err := f.reg.PostMessage(context.Background(), alice, "oops")
	require.NoError(t, err)

	f.store.EXPECT().Remove(gomock.Any(), domain.RoomID("r1_room"), msg.ID).Return(nil)
	require.NoError(t, f.reg.DeleteMessage(context.Background(), alice, msg.ID))
}
