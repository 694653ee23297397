package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Ephemeral/internal/adapters/signal"
	"github.com/dkeye/Ephemeral/internal/app"
	"github.com/dkeye/Ephemeral/internal/store"
)

type RoomConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	WarningBefore time.Duration `mapstructure:"warning_before"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CloseDelay    time.Duration `mapstructure:"close_delay"`
	HistoryLimit  int           `mapstructure:"history_limit"`
	SlowConsumer  string        `mapstructure:"slow_consumer"`
}

type ChatConfig struct {
	MaxTextLength int           `mapstructure:"max_text_length"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateInterval  time.Duration `mapstructure:"rate_interval"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	BadgerPath    string        `mapstructure:"badger_path"`
	Prefix        string        `mapstructure:"prefix"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Room  RoomConfig  `mapstructure:"room"`
	Chat  ChatConfig  `mapstructure:"chat"`
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")

	v.SetDefault("room.ttl", "15m")
	v.SetDefault("room.warning_before", "60s")
	v.SetDefault("room.grace_period", "20s")
	v.SetDefault("room.sweep_interval", "5s")
	v.SetDefault("room.close_delay", "500ms")
	v.SetDefault("room.history_limit", 50)
	v.SetDefault("room.slow_consumer", app.SlowConsumerKick)

	v.SetDefault("chat.max_text_length", 1000)
	v.SetDefault("chat.rate_limit", 8)
	v.SetDefault("chat.rate_interval", "5s")

	v.SetDefault("store.driver", store.DriverRedis)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.badger_path", "")
	v.SetDefault("store.prefix", "room:")
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.timeout", "2s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config/config.<CONFIG_ENV>.yaml (default env "dev") on top of
// the defaults. EPHEMERAL_* environment variables override both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("EPHEMERAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Dur("room_ttl", cfg.Room.TTL).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"ping_period":         c.PingPeriod,
		"room.ttl":            c.Room.TTL,
		"room.warning_before": c.Room.WarningBefore,
		"room.grace_period":   c.Room.GracePeriod,
		"room.sweep_interval": c.Room.SweepInterval,
		"chat.rate_interval":  c.Chat.RateInterval,
		"store.timeout":       c.Store.Timeout,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.Room.CloseDelay < 0 {
		errs = append(errs, errors.New("room.close_delay must not be negative"))
	}
	if c.Room.WarningBefore >= c.Room.TTL {
		errs = append(errs, fmt.Errorf("room.warning_before (%s) must be shorter than room.ttl (%s)", c.Room.WarningBefore, c.Room.TTL))
	}
	if c.Room.HistoryLimit <= 0 {
		errs = append(errs, errors.New("room.history_limit must be positive"))
	}
	if _, ok := app.PolicyFor(c.Room.SlowConsumer); !ok {
		errs = append(errs, fmt.Errorf("room.slow_consumer must be %q or %q, got %q", app.SlowConsumerKick, app.SlowConsumerDrop, c.Room.SlowConsumer))
	}
	if c.Chat.MaxTextLength <= 0 || c.Chat.RateLimit <= 0 {
		errs = append(errs, errors.New("chat.max_text_length and chat.rate_limit must be positive"))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, errors.New("read_limit must be positive"))
	}
	if c.Store.Driver != store.DriverRedis && c.Store.Driver != store.DriverBadger {
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", store.DriverRedis, store.DriverBadger, c.Store.Driver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) RoomOptions() app.Options {
	return app.Options{
		TTL:           c.Room.TTL,
		WarnBefore:    c.Room.WarningBefore,
		GracePeriod:   c.Room.GracePeriod,
		SweepInterval: c.Room.SweepInterval,
		CloseDelay:    c.Room.CloseDelay,
		StoreTimeout:  c.Store.Timeout,
		HistoryLimit:  c.Room.HistoryLimit,
	}
}

// Policy is the backpressure policy named by room.slow_consumer.
func (c *Config) Policy() app.Policy {
	p, ok := app.PolicyFor(c.Room.SlowConsumer)
	if !ok {
		return app.SimplePolicy{}
	}
	return p
}

func (c *Config) SignalOptions() signal.Options {
	opts := signal.DefaultOptions()
	opts.ReadLimit = c.ReadLimit
	opts.PingPeriod = c.PingPeriod
	opts.MaxTextLength = c.Chat.MaxTextLength
	opts.RateLimit = c.Chat.RateLimit
	opts.RateInterval = c.Chat.RateInterval
	return opts
}

func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Driver:        c.Store.Driver,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		BadgerPath:    c.Store.BadgerPath,
		Prefix:        c.Store.Prefix,
		EncryptionKey: c.Store.EncryptionKey,
		HistoryLimit:  c.Room.HistoryLimit,
	}
}
