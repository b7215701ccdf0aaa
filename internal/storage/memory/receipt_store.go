// Package memory provides in-process persistence for development runs.
package memory

import (
	"context"
	"sync"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// ReceiptStore keeps receipt records in memory.
type ReceiptStore struct {
	mu      sync.RWMutex
	records []nfce.ReceiptRecord
}

// NewReceiptStore creates an empty in-memory receipt store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{}
}

// SaveReceipt appends the record.
func (s *ReceiptStore) SaveReceipt(_ context.Context, record nfce.ReceiptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything saved so far.
func (s *ReceiptStore) Records() []nfce.ReceiptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]nfce.ReceiptRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close does nothing.
func (s *ReceiptStore) Close() {}
