// In-memory scan history store, used in tests and when no Firestore project
// is configured.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// MemoryStore keeps scan records in process memory. It mirrors the
// FirestoreStore semantics, including write validation, the "unknown"
// disease fallback, and newest-first listing.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]domain.ScanRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]domain.ScanRecord)}
}

// SaveScan validates and stores a record under a generated id.
func (s *MemoryStore) SaveScan(_ context.Context, rec domain.ScanRecord) (string, error) {
	if err := validateScan(rec); err != nil {
		return "", err
	}
	if rec.DetectedDisease == "" {
		rec.DetectedDisease = "unknown"
	}
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec
	return rec.ID, nil
}

// ListScans returns the user's records newest first.
func (s *MemoryStore) ListScans(_ context.Context, userID string) ([]domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScanRecord
	for _, r := range s.recs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// DeleteScan removes a record; missing ids are a no-op.
func (s *MemoryStore) DeleteScan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}
