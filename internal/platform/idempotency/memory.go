package idempotency

import (
	"context"
	"sync"
	"time"
)

// purgeEvery is how many reservations pass between expired-record purges.
const purgeEvery = 256

// MemoryStore keeps records in process for a single API instance and tests.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	reserves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Reserve claims key for fingerprint. An expired record counts as absent.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	id := storageKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserves++; s.reserves%purgeEvery == 0 {
		s.purgeLocked(now)
	}

	record, ok := s.records[id]
	switch {
	case !ok || !now.Before(record.ExpiresAt):
		record = Record{
			Key:         key,
			Fingerprint: fingerprint,
			Status:      StatusPending,
			CreatedAt:   now,
			ExpiresAt:   now.Add(ttlOrDefault(ttl)),
		}
		s.records[id] = record
		return Reservation{State: ReservationStateNew, Record: record}, nil
	case record.Fingerprint != fingerprint:
		return Reservation{}, ErrFingerprintMismatch
	case record.Status == StatusCompleted:
		return Reservation{State: ReservationStateCompleted, Record: record}, nil
	default:
		return Reservation{State: ReservationStatePending, Record: record}, nil
	}
}

func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	id := storageKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if ok && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	s.records[id] = completedRecord(key, fingerprint, resp, existing.CreatedAt, now.UTC(), ttlOrDefault(ttl))
	return nil
}

// Release forgets key so a retry after a failed request runs again.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, storageKey(key))
	s.mu.Unlock()
	return nil
}

// PurgeExpired drops records whose TTL has passed and reports how many went.
func (s *MemoryStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(now.UTC())
}

func (s *MemoryStore) purgeLocked(now time.Time) int {
	var purged int
	for id, record := range s.records {
		if !now.Before(record.ExpiresAt) {
			delete(s.records, id)
			purged++
		}
	}
	return purged
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
