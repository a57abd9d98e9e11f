package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/refcache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ store.Backend     = (*Redis)(nil)
	_ store.BatchGetter = (*Redis)(nil)
	_ store.BatchSetter = (*Redis)(nil)
	_ store.Adder       = (*Redis)(nil)
)

// clearBatch is the SCAN COUNT hint and the number of DELs per pipeline.
const clearBatch = 256

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// NewStore returns a Store backed by cfg.Client.
func NewStore(cfg Config, opts ...store.Option) (*store.Adapter, error) {
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewAdapter(r, opts...)
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// GetMany issues a single MGET. Nil replies are misses.
func (p *Redis) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return out, err
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[keys[i]] = []byte(vv)
		case []byte:
			out[keys[i]] = vv
		default:
			return out, fmt.Errorf("redis store: unexpected MGET reply %T at %s", v, keys[i])
		}
	}
	return out, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// SetMany pipelines one SET per item in a single round-trip.
func (p *Redis) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	cmds, err := p.rdb.Pipelined(ctx, func(pl goredis.Pipeliner) error {
		for k, v := range items {
			pl.Set(ctx, k, v, ttl)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	for _, c := range cmds {
		if c.Err() != nil {
			return false, c.Err()
		}
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add is a SET NX.
func (p *Redis) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Clear SCANs for keys under prefix and deletes them in pipelined batches.
// On a cluster every master is scanned.
func (p *Redis) Clear(ctx context.Context, prefix string) error {
	match := escapeGlob(prefix) + "*"
	if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			return clearMatching(ctx, c, match)
		})
	}
	return clearMatching(ctx, p.rdb, match)
}

func clearMatching(ctx context.Context, c goredis.Cmdable, match string) error {
	it := c.Scan(ctx, 0, match, clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// one DEL per key: keys of a batch may live in different cluster slots
		_, err := c.Pipelined(ctx, func(pl goredis.Pipeliner) error {
			for _, k := range batch {
				pl.Del(ctx, k)
			}
			return nil
		})
		batch = batch[:0]
		return err
	}
	for it.Next(ctx) {
		batch = append(batch, it.Val())
		if len(batch) == clearBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	return flush()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// escapeGlob quotes the MATCH metacharacters in s.
func escapeGlob(s string) string { return globEscaper.Replace(s) }

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
