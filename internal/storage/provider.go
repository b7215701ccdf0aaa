// Package storage provides blob and receipt persistence backends. The
// abstraction keeps the scraper independent of where artifacts land
// (Google Cloud Storage, the local filesystem, or nowhere at all).
package storage

import (
	"context"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// NoOpBlobStore discards snapshots. Used when failure diagnostics are off.
type NoOpBlobStore struct{}

// PutObject does nothing and reports no URI.
func (NoOpBlobStore) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}

// NoOpReceiptStore discards receipt records. Used when the scraper runs
// without an archive database.
type NoOpReceiptStore struct{}

// SaveReceipt does nothing.
func (NoOpReceiptStore) SaveReceipt(_ context.Context, _ nfce.ReceiptRecord) error { return nil }

// Close does nothing.
func (NoOpReceiptStore) Close() {}
