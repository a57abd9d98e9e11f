// Package config builds a store and a ref source from a YAML document.
//
//	driver: redis
//	prefix: "app:prod:"
//	refs: redis
//	redis:
//	  addr: localhost:6379
//	  db: 0
//	  dial_timeout: 2s
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/refcache/refs"
	"github.com/unkn0wn-root/refcache/store"
	"github.com/unkn0wn-root/refcache/store/bigcache"
	"github.com/unkn0wn-root/refcache/store/blackhole"
	"github.com/unkn0wn-root/refcache/store/memcache"
	"github.com/unkn0wn-root/refcache/store/memory"
	"github.com/unkn0wn-root/refcache/store/redis"
	"github.com/unkn0wn-root/refcache/store/ristretto"
)

// EnvFile names the environment variable holding the default config path.
const EnvFile = "REFCACHE_CONFIG"

const (
	DriverMemory    = "memory"
	DriverBlackhole = "blackhole"
	DriverRedis     = "redis"
	DriverMemcache  = "memcache"
	DriverBigCache  = "bigcache"
	DriverRistretto = "ristretto"

	RefsClock     = "clock"
	RefsMonotonic = "monotonic"
	RefsRedis     = "redis"
)

var (
	ErrUnknownDriver = errors.New("config: unknown driver")
	ErrUnknownRefs   = errors.New("config: unknown refs source")
	ErrNoPath        = errors.New("config: no config path")
)

type Config struct {
	Driver string `yaml:"driver"` // "" => memory
	Prefix string `yaml:"prefix"`
	Refs   string `yaml:"refs"` // "" => clock

	Memory    MemoryConfig    `yaml:"memory"`
	Redis     RedisConfig     `yaml:"redis"`
	Memcache  MemcacheConfig  `yaml:"memcache"`
	BigCache  BigCacheConfig  `yaml:"bigcache"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
}

type MemoryConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RefsNamespace names the INCR counter when refs is "redis".
	RefsNamespace string        `yaml:"refs_namespace"`
	RefsTTL       time.Duration `yaml:"refs_ttl"`
}

type MemcacheConfig struct {
	Servers      []string      `yaml:"servers"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type BigCacheConfig struct {
	LifeWindow         time.Duration `yaml:"life_window"`
	CleanWindow        time.Duration `yaml:"clean_window"`
	Shards             int           `yaml:"shards"`
	MaxEntriesInWindow int           `yaml:"max_entries_in_window"`
	MaxEntrySize       int           `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
	Sync        bool  `yaml:"sync"`
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses path. An empty path falls back to $REFCACHE_CONFIG.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path == "" {
		return nil, ErrNoPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func (c *Config) driver() string {
	if c.Driver == "" {
		return DriverMemory
	}
	return c.Driver
}

func (c *Config) refs() string {
	if c.Refs == "" {
		return RefsClock
	}
	return c.Refs
}

func (c *Config) Validate() error {
	switch c.driver() {
	case DriverMemory, DriverBlackhole, DriverBigCache, DriverRistretto:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required")
		}
	case DriverMemcache:
		if len(c.Memcache.Servers) == 0 {
			return errors.New("config: memcache.servers is required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	switch c.refs() {
	case RefsClock, RefsMonotonic:
	case RefsRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: refs \"redis\" needs redis.addr")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRefs, c.Refs)
	}
	return nil
}

// Setup is what Open builds. Close releases everything it owns.
type Setup struct {
	Store store.Store
	Refs  refs.Source

	rdb goredis.UniversalClient
}

func (s *Setup) Close(ctx context.Context) error {
	err := s.Store.Close(ctx)
	if s.rdb != nil {
		err = multierr.Append(err, s.rdb.Close())
	}
	return err
}

// Open builds the configured store and ref source. A redis client is shared
// between the redis driver and redis refs.
func Open(cfg *Config) (*Setup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Setup{}
	if cfg.driver() == DriverRedis || cfg.refs() == RefsRedis {
		s.rdb = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	}

	st, err := openStore(cfg, s.rdb)
	if err != nil {
		return nil, multierr.Append(err, s.closeClient())
	}
	s.Store = st

	switch cfg.refs() {
	case RefsMonotonic:
		s.Refs = &refs.Monotonic{}
	case RefsRedis:
		ns := cfg.Redis.RefsNamespace
		if ns == "" {
			ns = cfg.Prefix
		}
		r, err := refs.NewRedisWithTTL(s.rdb, ns, cfg.Redis.RefsTTL)
		if err != nil {
			return nil, multierr.Append(err, s.Close(context.Background()))
		}
		s.Refs = r
	default:
		s.Refs = refs.Clock{}
	}
	return s, nil
}

func (s *Setup) closeClient() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func openStore(cfg *Config, rdb goredis.UniversalClient) (store.Store, error) {
	opts := []store.Option{store.WithPrefix(cfg.Prefix)}
	switch cfg.driver() {
	case DriverBlackhole:
		return blackhole.NewStore(opts...), nil
	case DriverRedis:
		// Setup owns the client; the store must not close it
		return redis.NewStore(redis.Config{Client: rdb}, opts...)
	case DriverMemcache:
		return memcache.NewStore(memcache.Config{
			Servers:      cfg.Memcache.Servers,
			Timeout:      cfg.Memcache.Timeout,
			MaxIdleConns: cfg.Memcache.MaxIdleConns,
		}, opts...)
	case DriverBigCache:
		b := cfg.BigCache
		return bigcache.NewStore(bigcache.Config{
			LifeWindow:         b.LifeWindow,
			CleanWindow:        b.CleanWindow,
			Shards:             b.Shards,
			MaxEntriesInWindow: b.MaxEntriesInWindow,
			MaxEntrySize:       b.MaxEntrySize,
			HardMaxCacheSizeMB: b.HardMaxCacheSizeMB,
		}, opts...)
	case DriverRistretto:
		r := cfg.Ristretto
		return ristretto.NewStore(ristretto.Config{
			NumCounters: coalesce(r.NumCounters, 1e5),
			MaxCost:     coalesce(r.MaxCost, 1e4),
			BufferItems: coalesce(r.BufferItems, 64),
			Metrics:     r.Metrics,
			Sync:        r.Sync,
		}, opts...)
	default:
		return memory.NewStore(memory.Config{CleanupInterval: cfg.Memory.CleanupInterval}, opts...), nil
	}
}

func coalesce(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}
