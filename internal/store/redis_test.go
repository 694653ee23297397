package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ephemeral/internal/domain"
)

func newRedisStore(t *testing.T, limit int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	codec, err := NewCodec("test-key")
	require.NoError(t, err)
	s := NewRedisStore(client, codec, "room:", limit)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func message(i int) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        fmt.Sprintf("m%02d", i),
		Type:      domain.MessageTypeChat,
		Username:  "alice",
		Text:      fmt.Sprintf("text %d", i),
		Timestamp: int64(1700000000000 + i),
	}
}

func TestRedisStore_SaveAndList(t *testing.T) {
	s, mr := newRedisStore(t, 3)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, s.Save(ctx, "room_1", message(i), 10*time.Minute))
	}
	got, err := s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{message(2), message(3), message(4)}, got)
	require.Equal(t, 10*time.Minute, mr.TTL("room:room_1:messages"))

	// the list disappears with its TTL
	mr.FastForward(11 * time.Minute)
	got, err = s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisStore_RemoveAndDelete(t *testing.T) {
	s, mr := newRedisStore(t, 50)
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
	require.False(t, mr.Exists("room:room_1:messages"))
}

func TestRedisStore_SkipsUnreadableEntries(t *testing.T) {
	s, mr := newRedisStore(t, 50)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "room_1", message(1), time.Minute))
	_, err := mr.Lpush("room:room_1:messages", `{"v":9}`)
	require.NoError(t, err)

	got, err := s.List(ctx, "room_1")
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{message(1)}, got)
}

func TestRedisStore_PingFailsWhenDown(t *testing.T) {
	s, mr := newRedisStore(t, 50)
	require.NoError(t, s.Ping(context.Background()))
	mr.Close()
	require.Error(t, s.Ping(context.Background()))
}
