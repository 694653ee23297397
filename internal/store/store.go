// Package store implements the room message history backends.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/core"
)

const (
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

type Config struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BadgerPath    string
	Prefix        string
	EncryptionKey string
	HistoryLimit  int
}

// Open builds the configured backend. Redis is pinged once so a bad address
// is reported at startup.
func Open(ctx context.Context, cfg Config) (core.MessageStore, error) {
	codec, err := NewCodec(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if !codec.Encrypted() {
		log.Warn().Str("module", "store").Msg("no encryption key configured, history is stored in plaintext")
	}

	switch cfg.Driver {
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("module", "store").Str("addr", cfg.RedisAddr).Msg("redis message store ready")
		return NewRedisStore(client, codec, cfg.Prefix, cfg.HistoryLimit), nil
	case DriverBadger:
		db, err := OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("module", "store").Str("path", cfg.BadgerPath).Msg("badger message store ready")
		return NewBadgerStore(db, codec, cfg.Prefix, cfg.HistoryLimit), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
