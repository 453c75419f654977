package utils

import (
	"context"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var revoked = newLocalStore()

// BlacklistToken revokes the token with identifier jti until it would have expired anyway.
func BlacklistToken(ctx context.Context, jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return
	}
	key := blacklistPrefix + jti
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		err := rc.Set(ctx, key, "1", ttl).Err()
		if err == nil {
			return
		}
		Sugar.Warnf("blacklist %s in redis failed, keeping it locally: %v", jti, err)
	}
	revoked.put(key, nil, ttl)
}

// IsTokenBlacklisted reports whether jti was revoked. Redis errors fall back to the local entries.
func IsTokenBlacklisted(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	key := blacklistPrefix + jti
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		if n, err := rc.Exists(ctx, key).Result(); err == nil && n > 0 {
			return true
		}
	}
	_, ok := revoked.get(key)
	return ok
}
