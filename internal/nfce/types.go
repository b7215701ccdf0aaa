// Package nfce defines the receipt domain types shared across subsystems.
package nfce

import (
	"context"
	"time"
)

// Establishment identifies the merchant that issued the receipt.
type Establishment struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
}

// LineItem is one purchased product row extracted from the receipt page.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitType    string  `json:"unitType"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Summary carries the receipt totals and provenance fields.
type Summary struct {
	ItemCount   int     `json:"itemCount"`
	TotalAmount float64 `json:"totalAmount"`
	OwnerID     int     `json:"ownerId"`
	StateCode   string  `json:"stateCode"`
	SourceURL   string  `json:"sourceUrl"`
	AccessKey   string  `json:"accessKey"`
}

// Receipt is the assembled extraction result for one fiscal receipt URL.
type Receipt struct {
	Establishment Establishment `json:"establishment"`
	LineItems     []LineItem    `json:"lineItems"`
	Summary       Summary       `json:"summary"`
}

// ReceiptRecord wraps a Receipt with archive metadata.
type ReceiptRecord struct {
	ID          string    `json:"id"`
	SourceURL   string    `json:"sourceUrl"`
	ExtractedAt time.Time `json:"extractedAt"`
	Receipt     Receipt   `json:"receipt"`
}

// CacheStats is a point-in-time snapshot of the result cache.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"maxEntries"`
	TTLSeconds int64   `json:"ttlSeconds"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hitRate"`
}

// PoolStatus reports the browser pool occupancy.
type PoolStatus struct {
	Capacity  int `json:"size"`
	Available int `json:"available"`
}

// ReceiptStore archives extracted receipts.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, record ReceiptRecord) error
	Close()
}

// BlobStore writes raw page artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes extracted receipts downstream.
type Publisher interface {
	Publish(ctx context.Context, record ReceiptRecord) (string, error)
	Close() error
}

// Cache guards the extraction pipeline with hash-keyed result reuse.
type Cache interface {
	// GetOrCompute returns the cached receipt for url, or invokes compute,
	// stores a successful result, and returns it. The bool reports a hit.
	GetOrCompute(ctx context.Context, url string, compute func(context.Context) (*Receipt, error)) (*Receipt, bool, error)
	Clear(ctx context.Context) int
	Stats(ctx context.Context) CacheStats
}
