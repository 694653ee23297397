package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ephemeral/internal/domain"
)

func newBadgerStore(t *testing.T, limit int) *BadgerStore {
	t.Helper()
	db, err := OpenBadger("")
	require.NoError(t, err)
	codec, err := NewCodec("")
	require.NoError(t, err)
	s := NewBadgerStore(db, codec, "room:", limit)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_SaveAndList(t *testing.T) {
	s := newBadgerStore(t, 3)
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, s.Save(ctx, "room_1", message(i), time.Minute))
	}
	require.NoError(t, s.Save(ctx, "room_10", message(9), time.Minute))

	got, err := s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{message(2), message(3), message(4)}, got)
}

func TestBadgerStore_RemoveAndDelete(t *testing.T) {
	s := newBadgerStore(t, 50)
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, s.Save(ctx, "room_1", message(i), time.Minute))
	}

	require.NoError(t, s.Remove(ctx, "room_1", "m01"))
	require.ErrorIs(t, s.Remove(ctx, "room_1", "m01"), domain.ErrMessageNotFound)
	got, err := s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{message(0), message(2)}, got)

	require.NoError(t, s.Delete(ctx, "room_1"))
	got, err = s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBadgerStore_Ping(t *testing.T) {
	s := newBadgerStore(t, 50)
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "sqlite"})
	require.Error(t, err)
}

func TestOpen_Badger(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverBadger, Prefix: "room:", HistoryLimit: 50})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}

func TestBadgerStore_SameMillisecondKeepsSaveOrder(t *testing.T) {
	s := newBadgerStore(t, 2)
	ctx := context.Background()
	// ids chosen so their lexical order disagrees with the save order
	saved := []domain.ChatMessage{
		{ID: "ffffffff", Type: domain.MessageTypeChat, Username: "alice", Text: "one", Timestamp: 1700000000000},
		{ID: "00000000", Type: domain.MessageTypeChat, Username: "alice", Text: "two", Timestamp: 1700000000000},
		{ID: "88888888", Type: domain.MessageTypeChat, Username: "alice", Text: "three", Timestamp: 1700000000000},
	}
	for _, m := range saved {
		require.NoError(t, s.Save(ctx, "room_1", m, time.Minute))
	}

	got, err := s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{saved[1], saved[2]}, got)

	require.NoError(t, s.Remove(ctx, "room_1", "00000000"))
	got, err = s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{saved[2]}, got)
}
