// Package redis opens the shared Redis client and holds the small stores
// built on it: revocable login sessions and the join-code lookup cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/simward_backend/config"
)

const (
	defaultPoolSize     = 10
	defaultMinIdle      = 2
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// Options maps config onto go-redis options. Unset pool sizes and
// timeouts take the package defaults.
func Options(c config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     orInt(c.PoolSize, defaultPoolSize),
		MinIdleConns: orInt(c.MinIdleConns, defaultMinIdle),
		DialTimeout:  orSeconds(c.DialTimeoutSeconds, defaultDialTimeout),
		ReadTimeout:  orSeconds(c.ReadTimeoutSeconds, defaultReadTimeout),
		WriteTimeout: orSeconds(c.WriteTimeoutSeconds, defaultWriteTimeout),
	}
}

// NewRedisFromCentral connects and pings once so a bad address fails at
// boot rather than on the first request.
func NewRedisFromCentral(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is empty")
	}
	rdb := goredis.NewClient(Options(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orSeconds(v int, def time.Duration) time.Duration {
	if v > 0 {
		return time.Duration(v) * time.Second
	}
	return def
}
