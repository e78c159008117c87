package cache

import (
	"context"
	"sync"
	"time"

	"github.com/voyago/backend/internal/domain/shared"
)

type marker struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore tracks processed event IDs in a map guarded
// by a mutex. Single-instance deployments and tests use this store;
// clustered deployments use the Redis one so workers share the record
// of which ledger events already ran.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	markers   map[string]marker
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore builds the store and starts a janitor
// goroutine that evicts expired markers. Call Close to stop it.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		markers:  make(map[string]marker),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkProcessed records the event ID with the given TTL. It reports
// true when this call claimed the ID and false when a live marker
// already existed, so callers can skip redelivered events. An expired
// marker counts as absent and is overwritten.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, exists := s.markers[eventID]; exists && time.Now().Before(m.expiresAt) {
		return false, nil
	}

	s.markers[eventID] = marker{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// IsProcessed reports whether a live marker exists for the event ID.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.markers[eventID]
	if !exists || time.Now().After(m.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Close stops the janitor goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, m := range s.markers {
		if now.After(m.expiresAt) {
			delete(s.markers, eventID)
		}
	}
}

// Size reports the current marker count, including not-yet-evicted
// expired ones. Used by tests and the stats endpoint.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
