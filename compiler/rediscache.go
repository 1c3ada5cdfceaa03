package compiler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/gooofy/quadstore/sparql"
)

// RedisCache is an optional second-level compiled-query cache, shared
// across every process serving the same store instead of memoized
// per-process like Cache. CompileCachedTiered consults it after a Cache miss
// (and backfills Cache on a hit), so a cold process still serves a warm plan
// another instance already compiled.
type RedisCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewRedisCache dials addr lazily (redigo pools connect on first use) and
// caches compiled plans for ttl.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		pool: &redis.Pool{
			MaxIdle:     8,
			IdleTimeout: 5 * time.Minute,
			Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
		},
		ttl: ttl,
	}
}

func redisKey(n *sparql.Node) (string, error) {
	key, err := hashKey(n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("quadstore:compiled:%d", key), nil
}

// Get returns a previously compiled statement stored under n's structural
// hash, if present and not expired.
func (c *RedisCache) Get(n *sparql.Node) (Compiled, bool, error) {
	key, err := redisKey(n)
	if err != nil {
		return Compiled{}, false, err
	}

	conn := c.pool.Get()
	defer conn.Close() //nolint:errcheck

	b, err := redis.Bytes(conn.Do("GET", key))
	if err == redis.ErrNil {
		return Compiled{}, false, nil
	}
	if err != nil {
		return Compiled{}, false, fmt.Errorf("compiler: redis GET %s: %w", key, err)
	}

	var compiled Compiled
	if err := json.Unmarshal(b, &compiled); err != nil {
		return Compiled{}, false, fmt.Errorf("compiler: decoding cached plan: %w", err)
	}
	return compiled, true, nil
}

// Set stores a compiled statement under n's structural hash with the
// cache's configured TTL.
func (c *RedisCache) Set(n *sparql.Node, compiled Compiled) error {
	key, err := redisKey(n)
	if err != nil {
		return err
	}

	b, err := json.Marshal(compiled)
	if err != nil {
		return fmt.Errorf("compiler: encoding plan for cache: %w", err)
	}

	conn := c.pool.Get()
	defer conn.Close() //nolint:errcheck

	_, err = conn.Do("SETEX", key, int(c.ttl.Seconds()), b)
	if err != nil {
		return fmt.Errorf("compiler: redis SETEX %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.pool.Close()
}

// CompileCachedTiered compiles n, serving a cached result from local (a
// process-local Cache) when present, falling back to remote (a shared
// RedisCache) and backfilling local on a remote hit, the way a compiled
// plan shared across a fleet of query-serving processes would be checked.
// Either cache may be nil.
func (c *Compiler) CompileCachedTiered(local *Cache, remote *RedisCache, n *sparql.Node) (Compiled, error) {
	if local != nil {
		if hit, ok, err := local.Get(n); err != nil {
			return Compiled{}, err
		} else if ok {
			return hit, nil
		}
	}

	if remote != nil {
		if hit, ok, err := remote.Get(n); err != nil {
			return Compiled{}, err
		} else if ok {
			if local != nil {
				if err := local.Set(n, hit); err != nil {
					return Compiled{}, err
				}
			}
			return hit, nil
		}
	}

	compiled, err := c.Compile(n)
	if err != nil {
		return Compiled{}, err
	}

	if local != nil {
		if err := local.Set(n, compiled); err != nil {
			return Compiled{}, err
		}
	}
	if remote != nil {
		if err := remote.Set(n, compiled); err != nil {
			return Compiled{}, err
		}
	}
	return compiled, nil
}
