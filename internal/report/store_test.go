package report_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMiss(t *testing.T) {
	s := report.NewMemoryStore(0)
	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := report.NewMemoryStore(time.Hour)
	entry := models.CacheEntry{IssueID: "i-1", IssueIdentifier: "ENG-1", LastOccurrence: time.Now(), OccurrenceCount: 1}

	require.NoError(t, s.Put(ctx, "sig", entry))
	got, ok, err := s.Get(ctx, "sig")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry, got)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_SweepEvictsStale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := report.NewMemoryStore(24 * time.Hour)

	require.NoError(t, s.Put(ctx, "stale", models.CacheEntry{IssueID: "a", LastOccurrence: now.Add(-25 * time.Hour)}))
	require.NoError(t, s.Put(ctx, "fresh", models.CacheEntry{IssueID: "b", LastOccurrence: now.Add(-time.Hour)}))
	require.NoError(t, s.Put(ctx, "edge", models.CacheEntry{IssueID: "c", LastOccurrence: now.Add(-24 * time.Hour)}))

	evicted, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	_, ok, _ := s.Get(ctx, "stale")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "fresh")
	assert.True(t, ok)
	_, ok, _ = s.Get(ctx, "edge")
	assert.True(t, ok)
}

func TestMemoryStore_GetReturnsStaleUntilSwept(t *testing.T) {
	ctx := context.Background()
	s := report.NewMemoryStore(time.Hour)
	require.NoError(t, s.Put(ctx, "sig", models.CacheEntry{IssueID: "a", LastOccurrence: time.Now().Add(-48 * time.Hour)}))

	_, ok, err := s.Get(ctx, "sig")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := report.NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig := fmt.Sprintf("sig-%d", i%5)
			_ = s.Put(ctx, sig, models.CacheEntry{IssueID: sig, LastOccurrence: time.Now()})
			_, _, _ = s.Get(ctx, sig)
			_, _ = s.Sweep(ctx, time.Now())
		}(i)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
