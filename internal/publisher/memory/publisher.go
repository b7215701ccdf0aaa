// Package memory contains an in-memory publisher for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// Publisher stores published receipt records for inspection.
type Publisher struct {
	mu      sync.RWMutex
	records []nfce.ReceiptRecord
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the receipt and returns a pseudo message ID.
func (p *Publisher) Publish(_ context.Context, record nfce.ReceiptRecord) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return fmt.Sprintf("memory-%d", len(p.records)), nil
}

// Records returns the recorded publishes.
func (p *Publisher) Records() []nfce.ReceiptRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]nfce.ReceiptRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Close does nothing.
func (p *Publisher) Close() error { return nil }
