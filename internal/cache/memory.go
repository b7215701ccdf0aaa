package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

type memoryEntry struct {
	key      string
	receipt  *nfce.Receipt
	storedAt time.Time
}

// Memory is an in-process result cache with write-based TTL expiry and LRU
// eviction once maxEntries is reached. Hit/miss counters are cumulative for
// the process lifetime; Clear removes entries but keeps the counters.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	store   map[string]*list.Element
	lruList *list.List
	hits    int64
	misses  int64
}

// NewMemory builds a memory cache sized and aged by cfg-style knobs.
func NewMemory(ttl time.Duration, maxEntries int, logger *zap.Logger) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
		store:      make(map[string]*list.Element),
		lruList:    list.New(),
	}
}

// GetOrCompute returns the cached receipt for url when present and fresh.
// Otherwise compute runs and a successful result is stored. Concurrent
// misses for the same URL may each invoke compute; the last write wins.
func (m *Memory) GetOrCompute(ctx context.Context, url string, compute func(context.Context) (*nfce.Receipt, error)) (*nfce.Receipt, bool, error) {
	key := Key(url)

	if receipt, ok := m.lookup(key); ok {
		m.logger.Debug("cache hit", zap.String("key", key))
		return receipt, true, nil
	}

	receipt, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	m.put(key, receipt)
	return receipt, false, nil
}

func (m *Memory) lookup(key string) (*nfce.Receipt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	element, ok := m.store[key]
	if !ok {
		m.misses++
		return nil, false
	}
	entry := element.Value.(*memoryEntry)
	if m.now().Sub(entry.storedAt) >= m.ttl {
		m.lruList.Remove(element)
		delete(m.store, key)
		m.misses++
		return nil, false
	}
	m.lruList.MoveToFront(element)
	m.hits++
	return entry.receipt, true
}

func (m *Memory) put(key string, receipt *nfce.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if element, ok := m.store[key]; ok {
		entry := element.Value.(*memoryEntry)
		entry.receipt = receipt
		entry.storedAt = m.now()
		m.lruList.MoveToFront(element)
		return
	}

	for len(m.store) >= m.maxEntries {
		oldest := m.lruList.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*memoryEntry)
		m.lruList.Remove(oldest)
		delete(m.store, evicted.key)
		m.logger.Debug("cache eviction", zap.String("key", evicted.key))
	}

	element := m.lruList.PushFront(&memoryEntry{key: key, receipt: receipt, storedAt: m.now()})
	m.store[key] = element
}

// Clear drops every entry and reports how many were removed.
func (m *Memory) Clear(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.store)
	m.store = make(map[string]*list.Element)
	m.lruList.Init()
	m.logger.Info("cache cleared", zap.Int("removed", removed))
	return removed
}

// Stats snapshots occupancy and cumulative hit/miss counters.
func (m *Memory) Stats(ctx context.Context) nfce.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := nfce.CacheStats{
		Entries:    len(m.store),
		MaxEntries: m.maxEntries,
		TTLSeconds: int64(m.ttl / time.Second),
		Hits:       m.hits,
		Misses:     m.misses,
	}
	if total := m.hits + m.misses; total > 0 {
		stats.HitRate = float64(m.hits) / float64(total)
	}
	return stats
}
