package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/browser"
	"github.com/poupacompra/nfce-scraper/internal/metrics"
	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// Service is the cache-guarded front door to the extraction pipeline.
type Service struct {
	pool           *browser.Pool
	cache          nfce.Cache
	pipeline       *Pipeline
	receipts       nfce.ReceiptStore
	publisher      nfce.Publisher
	acquireTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewService wires the service. Receipts and publisher may be noop
// implementations; the scrape result is returned to the caller regardless.
func NewService(pool *browser.Pool, resultCache nfce.Cache, pipeline *Pipeline, receipts nfce.ReceiptStore, publisher nfce.Publisher, acquireTimeout time.Duration, logger *zap.Logger) *Service {
	metrics.Init()
	return &Service{
		pool:           pool,
		cache:          resultCache,
		pipeline:       pipeline,
		receipts:       receipts,
		publisher:      publisher,
		acquireTimeout: acquireTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// Fetch returns the receipt for url, from cache when fresh, otherwise by
// borrowing a session and running the pipeline. Only successful extractions
// enter the cache.
func (s *Service) Fetch(ctx context.Context, url string) (*nfce.Receipt, error) {
	receipt, hit, err := s.cache.GetOrCompute(ctx, url, func(ctx context.Context) (*nfce.Receipt, error) {
		return s.scrape(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		metrics.ObserveCacheHit()
		s.logger.Debug("served from cache", zap.String("url", url))
	} else {
		metrics.ObserveCacheMiss()
	}
	return receipt, nil
}

func (s *Service) scrape(ctx context.Context, url string) (*nfce.Receipt, error) {
	start := s.now()

	session, err := s.pool.Acquire(s.acquireTimeout)
	if err != nil {
		metrics.ObserveScrape(string(nfce.KindOf(err)), s.now().Sub(start))
		return nil, err
	}
	defer func() {
		s.pool.Release(session)
		metrics.SetPoolAvailable(s.pool.Available())
	}()
	metrics.SetPoolAvailable(s.pool.Available())

	receipt, err := s.pipeline.Extract(ctx, session, url)
	if err != nil {
		outcome := string(nfce.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		metrics.ObserveScrape(outcome, s.now().Sub(start))
		return nil, err
	}
	metrics.ObserveScrape("success", s.now().Sub(start))

	record := nfce.ReceiptRecord{
		ID:          uuid.NewString(),
		SourceURL:   url,
		ExtractedAt: s.now().UTC(),
		Receipt:     *receipt,
	}
	// Archive and publication are side channels; their failures must not
	// cost the caller a result that is already in hand.
	if err := s.receipts.SaveReceipt(ctx, record); err != nil {
		s.logger.Error("receipt archive failed", zap.String("url", url), zap.Error(err))
	}
	if _, err := s.publisher.Publish(ctx, record); err != nil {
		s.logger.Error("receipt publication failed", zap.String("url", url), zap.Error(err))
	}

	return receipt, nil
}

// ClearCache drops every cached receipt and reports how many were removed.
func (s *Service) ClearCache(ctx context.Context) int {
	return s.cache.Clear(ctx)
}

// CacheStats snapshots the result cache.
func (s *Service) CacheStats(ctx context.Context) nfce.CacheStats {
	return s.cache.Stats(ctx)
}

// PoolStatus snapshots the browser pool.
func (s *Service) PoolStatus() nfce.PoolStatus {
	return s.pool.Status()
}
