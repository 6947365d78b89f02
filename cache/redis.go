package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/validation"
)

// RedisConfig holds the Redis connection settings of a RedisStore.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`

	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db" validate:"gte=0"`

	// Prefix is prepended to every key, separated by a colon.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`

	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns" validate:"gte=0"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *RedisConfig) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "reqkit:cache"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks the configuration.
func (c *RedisConfig) Validate() error {
	return validation.Validate(c)
}

// RedisStore keeps JSON-encoded entries in Redis.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	log    *logger.Logger
	retry  resilience.RetryConfig

	mu     sync.Mutex
	closed bool
}

// NewRedisStore connects to Redis with cfg.
func NewRedisStore(cfg RedisConfig, log *logger.Logger) (*RedisStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis cache config: %w", err)
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if log == nil {
		log = logger.WithComponent("cache")
	}
	log.Info("redis cache created", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.Prefix))
	return NewRedisStoreWithClient(rdb, cfg.Prefix, log), nil
}

// NewRedisStoreWithClient wraps an existing go-redis client.
func NewRedisStoreWithClient(rdb goredis.UniversalClient, prefix string, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.WithComponent("cache")
	}
	retry := resilience.DefaultRetryConfig()
	retry.RetryIf = func(error) bool { return true }
	return &RedisStore{rdb: rdb, prefix: prefix, log: log, retry: retry}
}

func (s *RedisStore) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := s.rdb.Get(ctx, s.fullKey(key)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get %q: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("redis cache unmarshal %q: %w", key, err)
	}
	return &e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis cache marshal %q: %w", key, err)
	}
	if err := s.rdb.Set(ctx, s.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("redis cache delete %q: %w", key, err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	pong, err := s.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Close closes the connection. Safe to call multiple times.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rdb.Close()
}

// --- component.Component ---

func (s *RedisStore) Name() string { return "cache-redis" }

// Start waits for Redis to answer a ping, retrying with backoff.
func (s *RedisStore) Start(ctx context.Context) error {
	return resilience.RetryFunc(ctx, s.retry, func() error {
		err := s.Ping(ctx)
		if err != nil {
			s.log.Warn("redis cache not ready", logger.ErrorFields("ping", err))
		}
		return err
	})
}

func (s *RedisStore) Stop(_ context.Context) error {
	return s.Close()
}

func (s *RedisStore) Health(ctx context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if err := s.Ping(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

func (s *RedisStore) Describe() component.Description {
	return component.Description{Type: "cache", Details: "redis prefix=" + s.prefix}
}

var (
	_ Store                 = (*RedisStore)(nil)
	_ component.Component   = (*RedisStore)(nil)
	_ component.Describable = (*RedisStore)(nil)
)
