// Package publisher holds publisher implementations shared across providers.
package publisher

import (
	"context"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// NoOp drops records. Used when no downstream consumer is configured.
type NoOp struct{}

// Publish does nothing and reports no message ID.
func (NoOp) Publish(_ context.Context, _ nfce.ReceiptRecord) (string, error) { return "", nil }

// Close does nothing.
func (NoOp) Close() error { return nil }
