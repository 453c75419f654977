package utils

import (
	"context"
	"encoding/json"
	"time"
)

const (
	defaultCacheTTL = 30 * time.Second
	cacheScanBatch  = 500
	cacheScanRounds = 20
)

var localCache = newLocalStore()

// CacheGetJSON decodes the value cached under key into out and reports a hit.
func CacheGetJSON(ctx context.Context, key string, out interface{}) bool {
	var raw []byte
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		b, err := rc.Get(ctx, key).Bytes()
		cancel()
		if err != nil {
			return false
		}
		raw = b
	} else {
		b, ok := localCache.get(key)
		if !ok {
			return false
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		Sugar.Debugf("cache: drop undecodable %s: %v", key, err)
		return false
	}
	return true
}

// CacheSetJSON stores v as JSON for ttl, or the default TTL when ttl is not positive.
func CacheSetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		Sugar.Warnf("cache: encode %s: %v", key, err)
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
			Sugar.Warnf("cache: set %s: %v", key, err)
		}
		return
	}
	localCache.put(key, b, ttl)
}

// InvalidateByPrefix drops every cached key starting with prefix.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	rc := GetRedis()
	if rc == nil {
		localCache.deletePrefix(prefix)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*redisOpTimeout)
	defer cancel()
	iter := rc.Scan(ctx, 0, prefix+"*", cacheScanBatch).Iterator()
	batch := make([]string, 0, cacheScanBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := rc.Unlink(ctx, batch...).Err(); err != nil {
			Sugar.Warnf("cache: unlink under %s: %v", prefix, err)
		}
		batch = batch[:0]
	}
	for rounds := 0; iter.Next(ctx); {
		batch = append(batch, iter.Val())
		if len(batch) == cacheScanBatch {
			flush()
			if rounds++; rounds == cacheScanRounds {
				break
			}
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		Sugar.Warnf("cache: scan %s: %v", prefix, err)
	}
}
