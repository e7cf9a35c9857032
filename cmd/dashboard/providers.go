package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/swrcache/internal/config"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/provider/bigcache"
	"github.com/unkn0wn-root/swrcache/provider/gocache"
	"github.com/unkn0wn-root/swrcache/provider/memory"
	"github.com/unkn0wn-root/swrcache/provider/redis"
	"github.com/unkn0wn-root/swrcache/provider/ristretto"
	"github.com/unkn0wn-root/swrcache/provider/sqlite"
)

// average entry size used to size ristretto's admission counters
const avgEntryBytes = 4 << 10

func openProvider(ctx context.Context, cfg config.Config) (pr.Provider, error) {
	maxBytes := int64(cfg.MaxCacheSizeMB) << 20
	switch cfg.Provider {
	case "memory":
		return memory.New(), nil
	case "gocache":
		return gocache.New(), nil
	case "bigcache":
		return bigcache.New(bigcache.Config{HardMaxCacheSizeMB: cfg.MaxCacheSizeMB})
	case "ristretto":
		if maxBytes <= 0 {
			maxBytes = 64 << 20
		}
		return ristretto.New(ristretto.Config{
			NumCounters: 10 * maxBytes / avgEntryBytes,
			MaxCost:     maxBytes,
			BufferItems: 64,
			Metrics:     true,
		})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return redis.New(redis.Config{Client: rdb, Prefix: cfg.RedisPrefix, CloseClient: true})
	case "sqlite":
		return sqlite.New(ctx, sqlite.Config{Path: cfg.SQLitePath})
	}
	return nil, fmt.Errorf("unknown cache provider %q", cfg.Provider)
}
