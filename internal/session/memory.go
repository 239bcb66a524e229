package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements [Store] using an in-process TTL cache.
//
// Entries expire after the session lifetime without touch-on-hit, so a
// session's values disappear together regardless of read activity.
type MemoryStore struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryStore creates an in-memory session store. Values live for ttl and
// are cleaned up by a background goroutine; call [MemoryStore.Close] to stop it.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)

	go cache.Start()

	return &MemoryStore{cache: cache}
}

func storeKey(sid, key string) string {
	return sid + "/" + key
}

// Get implements [Store.Get].
func (s *MemoryStore) Get(_ context.Context, sid, key string) ([]byte, error) {
	item := s.cache.Get(storeKey(sid, key))
	if item == nil {
		return nil, ErrNotFound
	}
	return item.Value(), nil
}

// Put implements [Store.Put].
func (s *MemoryStore) Put(_ context.Context, sid, key string, value []byte) error {
	s.cache.Set(storeKey(sid, key), value, ttlcache.DefaultTTL)
	return nil
}

// Delete implements [Store.Delete].
func (s *MemoryStore) Delete(_ context.Context, sid, key string) error {
	s.cache.Delete(storeKey(sid, key))
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
