package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

func sampleReceipt(total float64) *nfce.Receipt {
	return &nfce.Receipt{Summary: nfce.Summary{TotalAmount: total}}
}

func noCompute(t *testing.T) func(context.Context) (*nfce.Receipt, error) {
	t.Helper()
	return func(context.Context) (*nfce.Receipt, error) {
		t.Fatal("compute should not run on a cache hit")
		return nil, nil
	}
}

func TestKeyIsStableAndDistinct(t *testing.T) {
	t.Parallel()

	a := Key("https://nfce.fazenda.sp.gov.br/consulta?p=123")
	b := Key("https://nfce.fazenda.sp.gov.br/consulta?p=123")
	c := Key("https://nfce.fazenda.sp.gov.br/consulta?p=124")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestGetOrComputeCachesResult(t *testing.T) {
	t.Parallel()

	m := NewMemory(time.Hour, 10, zap.NewNop())
	calls := 0
	compute := func(context.Context) (*nfce.Receipt, error) {
		calls++
		return sampleReceipt(42), nil
	}

	got, hit, err := m.GetOrCompute(context.Background(), "https://x/nota", compute)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 42.0, got.Summary.TotalAmount)

	got, hit, err = m.GetOrCompute(context.Background(), "https://x/nota", compute)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 42.0, got.Summary.TotalAmount)
	require.Equal(t, 1, calls)
}

func TestComputeErrorIsNotCached(t *testing.T) {
	t.Parallel()

	m := NewMemory(time.Hour, 10, zap.NewNop())
	boom := errors.New("portal down")
	calls := 0

	_, _, err := m.GetOrCompute(context.Background(), "https://x/nota", func(context.Context) (*nfce.Receipt, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, hit, err := m.GetOrCompute(context.Background(), "https://x/nota", func(context.Context) (*nfce.Receipt, error) {
		calls++
		return sampleReceipt(1), nil
	})
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 2, calls)
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	t.Parallel()

	m := NewMemory(time.Hour, 10, zap.NewNop())
	current := time.Now()
	m.now = func() time.Time { return current }

	_, _, err := m.GetOrCompute(context.Background(), "https://x/nota", func(context.Context) (*nfce.Receipt, error) {
		return sampleReceipt(1), nil
	})
	require.NoError(t, err)

	current = current.Add(time.Hour + time.Second)

	recomputed := false
	_, hit, err := m.GetOrCompute(context.Background(), "https://x/nota", func(context.Context) (*nfce.Receipt, error) {
		recomputed = true
		return sampleReceipt(2), nil
	})
	require.NoError(t, err)
	require.False(t, hit)
	require.True(t, recomputed)
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	t.Parallel()

	m := NewMemory(time.Hour, 2, zap.NewNop())
	ctx := context.Background()
	fill := func(url string, total float64) {
		_, _, err := m.GetOrCompute(ctx, url, func(context.Context) (*nfce.Receipt, error) {
			return sampleReceipt(total), nil
		})
		require.NoError(t, err)
	}

	fill("https://x/1", 1)
	fill("https://x/2", 2)

	// Touch 1 so 2 becomes least recently used.
	_, hit, err := m.GetOrCompute(ctx, "https://x/1", noCompute(t))
	require.NoError(t, err)
	require.True(t, hit)

	fill("https://x/3", 3)

	_, hit, err = m.GetOrCompute(ctx, "https://x/2", func(context.Context) (*nfce.Receipt, error) {
		return sampleReceipt(2), nil
	})
	require.NoError(t, err)
	require.False(t, hit, "least recently used entry should have been evicted")

	require.Equal(t, 2, m.Stats(ctx).Entries)
}

func TestClearRemovesEntriesButKeepsCounters(t *testing.T) {
	t.Parallel()

	m := NewMemory(time.Hour, 10, zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://x/%d", i)
		_, _, err := m.GetOrCompute(ctx, url, func(context.Context) (*nfce.Receipt, error) {
			return sampleReceipt(float64(i)), nil
		})
		require.NoError(t, err)
	}
	_, hit, err := m.GetOrCompute(ctx, "https://x/0", noCompute(t))
	require.NoError(t, err)
	require.True(t, hit)

	removed := m.Clear(ctx)
	require.Equal(t, 3, removed)

	stats := m.Stats(ctx)
	require.Equal(t, 0, stats.Entries)
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(3), stats.Misses)
	require.InDelta(t, 0.25, stats.HitRate, 1e-9)
}
