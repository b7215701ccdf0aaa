// Package browser manages pooled headless Chrome sessions via chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// SessionConfig controls how each headless session is launched.
type SessionConfig struct {
	Headless  bool
	UserAgent string
}

// Viewport used by the fiscal portal's receipt layout.
const (
	viewportWidth  = 800
	viewportHeight = 600
)

// Script injected before any document script runs. The portal fingerprints
// automation through navigator.webdriver and the missing window.chrome object.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['pt-BR', 'pt', 'en-US'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

// PageDriver is what the pool hands out: a warmed page that can be driven
// through one extraction. The concrete implementation is Session; tests
// substitute fakes.
type PageDriver interface {
	ID() int
	Navigate(url string, timeout time.Duration) error
	WaitReady(selector string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Evaluate(script string, timeout time.Duration, out any) error
	BodyText(timeout time.Duration) (string, error)
	Close()
}

// Session owns one headless Chrome process and one page within it.
type Session struct {
	id          int
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewSession launches a Chrome process, applies the stealth and viewport
// overrides, and installs request interception that drops heavyweight
// resources. The returned session is ready to navigate.
func NewSession(id int, cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          id,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.With(zap.Int("session_id", id)),
	}

	chromedp.ListenTarget(ctx, s.interceptRequest)

	err := chromedp.Run(ctx,
		security.SetIgnoreCertificateErrors(true),
		emulation.SetUserAgentOverride(cfg.UserAgent),
		emulation.SetDeviceMetricsOverride(viewportWidth, viewportHeight, 1, false),
		emulation.SetAutomationOverride(false),
		fetch.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := page.SetBypassCSP(true).Do(ctx); err != nil {
				return err
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch session %d: %w", id, err)
	}

	s.logger.Debug("browser session ready")
	return s, nil
}

// interceptRequest fails heavyweight resource loads and continues the rest.
// The portal renders the receipt from inline script; images, styles, fonts,
// and media only slow the wait down.
func (s *Session) interceptRequest(ev any) {
	paused, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}
	go func() {
		c := chromedp.FromContext(s.ctx)
		ectx := cdp.WithExecutor(s.ctx, c.Target)
		switch paused.ResourceType {
		case network.ResourceTypeImage,
			network.ResourceTypeStylesheet,
			network.ResourceTypeFont,
			network.ResourceTypeMedia:
			if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ectx); err != nil {
				s.logger.Debug("fail request", zap.Error(err))
			}
		default:
			if err := fetch.ContinueRequest(paused.RequestID).Do(ectx); err != nil {
				s.logger.Debug("continue request", zap.Error(err))
			}
		}
	}()
}

// ID returns the session's position in the pool.
func (s *Session) ID() int { return s.id }

// Navigate commits a navigation to url without waiting for the load event.
// The portal's content is script-rendered, so readiness is checked separately.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigation failed: %s", errText)
		}
		return nil
	}))
}

// WaitReady blocks until selector is attached to the DOM.
func (s *Session) WaitReady(selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// WaitVisible blocks until selector is rendered visible.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Evaluate runs script in the page and unmarshals the JSON result into out.
func (s *Session) Evaluate(script string, timeout time.Duration, out any) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Evaluate(script, out))
}

// BodyText returns the page's visible body text, best effort.
func (s *Session) BodyText(timeout time.Duration) (string, error) {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	var text string
	if err := chromedp.Run(tctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// Close tears down the page and its Chrome process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
	s.logger.Debug("browser session closed")
}
