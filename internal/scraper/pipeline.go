// Package scraper turns a rendered NFC-e portal page into a receipt record.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/browser"
	"github.com/poupacompra/nfce-scraper/internal/cache"
	"github.com/poupacompra/nfce-scraper/internal/metrics"
	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

const (
	// provenanceSuffix marks records produced by this scraper so downstream
	// consumers can tell them apart from manually entered receipts.
	provenanceSuffix = " via scrapping docker"

	// ownerID is the fixed system user receipts are attributed to.
	ownerID = 3

	visibleTimeout  = 3 * time.Second
	snippetTimeout  = 2 * time.Second
	evaluateTimeout = 10 * time.Second
	snippetMaxLen   = 300
)

// Pipeline drives one borrowed session through navigate, readiness, DOM
// extraction, and record assembly.
type Pipeline struct {
	pageLoadTimeout time.Duration
	contentTimeout  time.Duration
	snapshots       nfce.BlobStore
	logger          *zap.Logger
}

// NewPipeline wires the pipeline. snapshots receives page bodies captured on
// readiness failures; pass a noop store to disable that.
func NewPipeline(pageLoadTimeout, contentTimeout time.Duration, snapshots nfce.BlobStore, logger *zap.Logger) *Pipeline {
	metrics.Init()
	return &Pipeline{
		pageLoadTimeout: pageLoadTimeout,
		contentTimeout:  contentTimeout,
		snapshots:       snapshots,
		logger:          logger,
	}
}

// Extract scrapes url with session. Errors come back classified so the
// caller can decide between retry-later and give-up.
func (p *Pipeline) Extract(ctx context.Context, session browser.PageDriver, url string) (*nfce.Receipt, error) {
	logger := p.logger.With(zap.String("url", url), zap.Int("session_id", session.ID()))

	if err := session.Navigate(url, p.pageLoadTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nfce.NewError(nfce.KindNavigationTimeout, url,
				fmt.Sprintf("navigation did not commit within %s", p.pageLoadTimeout), err)
		}
		return nil, nfce.NewError(nfce.KindPageAccess, url, "navigation failed", err)
	}

	if err := session.WaitReady(contentSelector, p.contentTimeout); err != nil {
		p.captureFailureSnapshot(ctx, session, url, logger)
		return nil, nfce.NewError(nfce.KindContentNotReady, url,
			"page did not load - suspected bot challenge or timeout", err)
	}

	// Visibility usually follows attachment within milliseconds; when it
	// does not, the data is still in the DOM, so keep going.
	if err := session.WaitVisible(contentSelector, visibleTimeout); err != nil {
		logger.Warn("content attached but not visible, extracting anyway", zap.Error(err))
	}

	var raw rawReceipt
	if err := session.Evaluate(receiptScript, evaluateTimeout, &raw); err != nil {
		return nil, nfce.NewError(nfce.KindPageAccess, url, "extract receipt fields", err)
	}

	var rawItems []rawLineItem
	if err := session.Evaluate(lineItemsScript, evaluateTimeout, &rawItems); err != nil {
		return nil, nfce.NewError(nfce.KindPageAccess, url, "extract line items", err)
	}

	receipt := p.assemble(url, raw, rawItems, logger)
	logger.Info("receipt extracted",
		zap.Int("line_items", len(receipt.LineItems)),
		zap.Float64("total", receipt.Summary.TotalAmount),
		zap.String("state", receipt.Summary.StateCode))
	return receipt, nil
}

// assemble normalizes the raw extraction into the receipt record. Malformed
// rows are dropped one at a time; everything else degrades field by field.
func (p *Pipeline) assemble(url string, raw rawReceipt, rawItems []rawLineItem, logger *zap.Logger) *nfce.Receipt {
	items := make([]nfce.LineItem, 0, len(rawItems))
	dropped := 0
	for i, rawItem := range rawItems {
		item, err := convertLineItem(rawItem)
		if err != nil {
			dropped++
			logger.Warn("dropping malformed line item", zap.Int("row", i), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	metrics.ObserveDroppedLineItems(dropped)

	return &nfce.Receipt{
		Establishment: nfce.Establishment{
			Name:    afterColon(raw.MerchantName),
			TaxID:   normalizeTaxID(raw.TaxID),
			Address: afterColon(raw.Address),
		},
		LineItems: items,
		Summary: nfce.Summary{
			ItemCount:   int(parseAmount(afterColon(raw.ItemCount))),
			TotalAmount: parseAmount(afterColon(raw.TotalAmount)),
			OwnerID:     ownerID,
			StateCode:   stateFromURL(url),
			SourceURL:   url + provenanceSuffix,
			AccessKey:   afterColon(raw.AccessKey) + provenanceSuffix,
		},
	}
}

// captureFailureSnapshot grabs whatever body text rendered and stores it for
// offline diagnosis of bot challenges. Best effort on every step.
func (p *Pipeline) captureFailureSnapshot(ctx context.Context, session browser.PageDriver, url string, logger *zap.Logger) {
	body, err := session.BodyText(snippetTimeout)
	if err != nil {
		logger.Warn("could not capture page body after readiness failure", zap.Error(err))
		return
	}
	snippet := body
	if len(snippet) > snippetMaxLen {
		snippet = snippet[:snippetMaxLen]
	}
	logger.Warn("content never attached", zap.String("body_snippet", snippet))

	path := fmt.Sprintf("%s/%d.txt", cache.Key(url), time.Now().UTC().Unix())
	uri, err := p.snapshots.PutObject(ctx, path, "text/plain; charset=utf-8", []byte(body))
	if err != nil {
		logger.Warn("could not persist failure snapshot", zap.Error(err))
		return
	}
	if uri != "" {
		logger.Info("failure snapshot saved", zap.String("uri", uri))
	}
}
