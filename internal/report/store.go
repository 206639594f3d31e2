package report

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// DefaultTTL is how long a signature stays deduplicated after its last occurrence.
const DefaultTTL = 24 * time.Hour

// Store holds the signature -> issue mapping used for deduplication.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, signature string) (models.CacheEntry, bool, error)
	Put(ctx context.Context, signature string, entry models.CacheEntry) error
	// Sweep removes entries whose last occurrence is older than the TTL and
	// returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
}

// MemoryStore is the process-local Store. It is not persisted: a restart forgets
// every signature.
//
// The mutex only protects the map itself. Get and Put are separate calls, so two
// first occurrences of the same signature can both miss and both create an issue;
// the later Put wins.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]models.CacheEntry
}

// NewMemoryStore creates an empty MemoryStore. A non-positive ttl selects DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, entries: make(map[string]models.CacheEntry)}
}

// Get returns the entry for signature. Stale entries are still returned until a
// sweep removes them.
func (s *MemoryStore) Get(_ context.Context, signature string) (models.CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[signature]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, signature string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[signature] = entry
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for sig, e := range s.entries {
		if now.Sub(e.LastOccurrence) > s.ttl {
			delete(s.entries, sig)
			evicted++
		}
	}
	return evicted, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

var _ Store = (*MemoryStore)(nil)
