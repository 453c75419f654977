package utils

import (
	"strings"
	"sync"
	"time"
)

// localStore holds values with a deadline in process memory. It backs every
// Redis helper when no Redis client is configured, so it only sees one instance.
type localStore struct {
	mu       sync.Mutex
	items    map[string]localItem
	lastScan time.Time
}

type localItem struct {
	val []byte
	exp time.Time
}

func newLocalStore() *localStore {
	return &localStore{items: map[string]localItem{}}
}

func (s *localStore) put(key string, val []byte, ttl time.Duration) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = localItem{val: val, exp: now.Add(ttl)}
	if now.Sub(s.lastScan) >= time.Minute {
		s.lastScan = now
		for k, it := range s.items {
			if now.After(it.exp) {
				delete(s.items, k)
			}
		}
	}
}

func (s *localStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.exp) {
		delete(s.items, key)
		return nil, false
	}
	return it.val, true
}

// take reads and removes key in one step.
func (s *localStore) take(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	delete(s.items, key)
	return ok && time.Now().Before(it.exp)
}

func (s *localStore) deletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
			n++
		}
	}
	return n
}
