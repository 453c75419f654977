package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ssaemtalk/server/config"
)

const redisOpTimeout = 2 * time.Second

var (
	redisMu     sync.Mutex
	redisClient *redis.Client
	redisReady  bool
)

func redisOptions(cfg config.AppConfig) *redis.Options {
	if cfg.RedisHost == "" {
		return nil
	}
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	}
}

// GetRedis returns the shared client, dialing it on first use. It is nil when
// no Redis host is configured; callers then use their in-memory fallback.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisReady {
		return redisClient
	}
	redisReady = true
	opts := redisOptions(config.Get())
	if opts == nil {
		Sugar.Info("redis not configured, using in-memory fallbacks")
		return nil
	}
	redisClient = redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis %s unreachable, calls will retry per request: %v", opts.Addr, err)
	}
	return redisClient
}

// CloseRedis closes the shared client. A later GetRedis dials again.
func CloseRedis() error {
	redisMu.Lock()
	defer redisMu.Unlock()
	c := redisClient
	redisClient, redisReady = nil, false
	if c == nil {
		return nil
	}
	return c.Close()
}
