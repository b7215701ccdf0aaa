package browser

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// Factory creates the session that fills slot id. Injectable so pool
// semantics are testable without Chrome.
type Factory func(id int) (PageDriver, error)

// ChromeFactory builds real chromedp sessions with the given config.
func ChromeFactory(cfg SessionConfig, logger *zap.Logger) Factory {
	return func(id int) (PageDriver, error) {
		return NewSession(id, cfg, logger)
	}
}

// Pool holds a fixed set of pre-warmed sessions behind a FIFO idle queue.
// Startup is eager and all-or-nothing.
type Pool struct {
	capacity int
	idle     chan PageDriver
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool creates size sessions up front. If any creation fails, the ones
// already created are closed and the whole pool fails.
func NewPool(size int, factory Factory, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, nfce.NewError(nfce.KindPoolInit, "", fmt.Sprintf("pool size must be > 0, got %d", size), nil)
	}

	p := &Pool{
		capacity: size,
		idle:     make(chan PageDriver, size),
		logger:   logger,
	}

	for i := 0; i < size; i++ {
		session, err := factory(i)
		if err != nil {
			p.drain()
			return nil, nfce.NewError(nfce.KindPoolInit, "", fmt.Sprintf("create session %d of %d", i, size), err)
		}
		p.idle <- session
		logger.Debug("session added to pool", zap.Int("session_id", i))
	}

	logger.Info("browser pool ready", zap.Int("size", size))
	return p, nil
}

// Acquire blocks until an idle session is available or timeout elapses.
func (p *Pool) Acquire(timeout time.Duration) (PageDriver, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nfce.NewError(nfce.KindPoolExhausted, "", "pool is shut down", nil)
	}
	p.mu.Unlock()

	select {
	case session := <-p.idle:
		p.logger.Debug("session acquired", zap.Int("session_id", session.ID()), zap.Int("available", len(p.idle)))
		return session, nil
	case <-time.After(timeout):
		return nil, nfce.NewError(nfce.KindPoolExhausted, "",
			fmt.Sprintf("no session became available within %s", timeout), nil)
	}
}

// Release returns a session to the idle queue. After shutdown the session is
// closed instead.
func (p *Pool) Release(session PageDriver) {
	if session == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		session.Close()
		return
	}
	select {
	case p.idle <- session:
		p.logger.Debug("session released", zap.Int("session_id", session.ID()), zap.Int("available", len(p.idle)))
	default:
		// Double release; drop the extra rather than corrupt the queue.
		p.logger.Warn("idle queue full on release, closing session", zap.Int("session_id", session.ID()))
		session.Close()
	}
}

// Available reports how many sessions are idle right now.
func (p *Pool) Available() int { return len(p.idle) }

// Capacity reports the fixed pool size.
func (p *Pool) Capacity() int { return p.capacity }

// Status snapshots the pool occupancy.
func (p *Pool) Status() nfce.PoolStatus {
	return nfce.PoolStatus{Capacity: p.capacity, Available: len(p.idle)}
}

// Shutdown closes every idle session. Sessions out on loan are closed as
// they come back through Release.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.drain()
	p.logger.Info("browser pool shut down")
}

func (p *Pool) drain() {
	for {
		select {
		case session := <-p.idle:
			session.Close()
		default:
			return
		}
	}
}
