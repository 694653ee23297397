package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/domain"
)

// RedisStore keeps one list per room, newest entry at the head.
type RedisStore struct {
	client *redis.Client
	codec  *Codec
	prefix string
	limit  int
}

func NewRedisStore(client *redis.Client, codec *Codec, prefix string, limit int) *RedisStore {
	return &RedisStore{client: client, codec: codec, prefix: prefix, limit: limit}
}

func (s *RedisStore) key(roomID domain.RoomID) string {
	return s.prefix + string(roomID) + ":messages"
}

// Save appends msg, trims the list to the newest limit entries and resets
// the list TTL to ttl.
func (s *RedisStore) Save(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage, ttl time.Duration) error {
	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	key := s.key(roomID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(s.limit-1))
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, s.key(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	slices.Reverse(raw)
	out := make([]domain.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		msg, err := s.codec.Decode([]byte(entry))
		if err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("room", string(roomID)).Msg("skipping unreadable entry")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, roomID domain.RoomID, messageID string) error {
	key := s.key(roomID)
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis remove: %w", err)
	}
	for _, entry := range raw {
		msg, err := s.codec.Decode([]byte(entry))
		if err != nil || msg.ID != messageID {
			continue
		}
		if err := s.client.LRem(ctx, key, 1, entry).Err(); err != nil {
			return fmt.Errorf("redis remove: %w", err)
		}
		return nil
	}
	return domain.ErrMessageNotFound
}

func (s *RedisStore) Delete(ctx context.Context, roomID domain.RoomID) error {
	if err := s.client.Del(ctx, s.key(roomID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
