package utils

import (
	"context"
	"time"
)

const (
	statePrefix     = "oauth:state:"
	defaultStateTTL = 10 * time.Minute
)

// getdel for servers older than Redis 6.2
var takeScript = `local v = redis.call('GET', KEYS[1])
if v then redis.call('DEL', KEYS[1]) end
return v`

var pendingStates = newLocalStore()

// SaveState remembers an OAuth state value for ttl.
func SaveState(ctx context.Context, state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	key := statePrefix + state
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		if rc.Set(ctx, key, "1", ttl).Err() == nil {
			return
		}
	}
	pendingStates.put(key, nil, ttl)
}

// ConsumeState accepts a saved state exactly once.
func ConsumeState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	key := statePrefix + state
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		if v, err := rc.GetDel(ctx, key).Result(); err == nil {
			return v != ""
		}
		if v, err := rc.Eval(ctx, takeScript, []string{key}).Result(); err == nil {
			return v != nil
		}
	}
	return pendingStates.take(key)
}
