package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// DedupStore is a report.Store shared by every replica through Redis. Each Put
// refreshes the key's TTL, so Redis expiry takes the place of the sweep.
type DedupStore struct {
	cache Cache
	ttl   time.Duration
}

// NewDedupStore creates a DedupStore on c. A non-positive ttl selects report.DefaultTTL.
func NewDedupStore(c Cache, ttl time.Duration) *DedupStore {
	if ttl <= 0 {
		ttl = report.DefaultTTL
	}
	return &DedupStore{cache: c, ttl: ttl}
}

func (s *DedupStore) Get(ctx context.Context, signature string) (models.CacheEntry, bool, error) {
	raw, found, err := s.cache.Get(ctx, DedupKey(signature))
	if err != nil || !found {
		return models.CacheEntry{}, false, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// An undecodable entry would block reports for this signature until it
		// expires, so drop it and treat the lookup as a miss.
		slog.Warn("dropping corrupt dedup entry", "signature", signature, "error", err)
		if err := s.cache.Delete(ctx, DedupKey(signature)); err != nil {
			return models.CacheEntry{}, false, fmt.Errorf("deleting corrupt dedup entry: %w", err)
		}
		return models.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *DedupStore) Put(ctx context.Context, signature string, entry models.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding dedup entry: %w", err)
	}
	return s.cache.Set(ctx, DedupKey(signature), raw, s.ttl)
}

// Sweep is a no-op: Redis evicts expired entries itself.
func (s *DedupStore) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *DedupStore) Len(ctx context.Context) (int, error) {
	return s.cache.CountKeys(ctx, DedupKeyPattern())
}

var _ report.Store = (*DedupStore)(nil)
