package nfce

import (
	"errors"
	"fmt"
)

// ErrorKind classifies scrape failures so callers can map them to
// retry decisions or transport status codes.
type ErrorKind string

const (
	// KindPoolInit means the browser pool could not be brought up. Fatal.
	KindPoolInit ErrorKind = "pool_init"
	// KindPoolExhausted means no session became idle within the acquire timeout.
	KindPoolExhausted ErrorKind = "pool_exhausted"
	// KindNavigationTimeout means the page never committed within the load timeout.
	KindNavigationTimeout ErrorKind = "navigation_timeout"
	// KindPageAccess means navigation failed outright (DNS, TLS, connection reset).
	KindPageAccess ErrorKind = "page_access"
	// KindContentNotReady means the page committed but the receipt content
	// never materialized, typically a bot challenge interstitial.
	KindContentNotReady ErrorKind = "content_not_ready"
)

// Error is a classified scrape failure carrying the offending URL.
type Error struct {
	Kind ErrorKind
	URL  string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s (url=%s)", msg, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified scrape error.
func NewError(kind ErrorKind, url, msg string, err error) *Error {
	return &Error{Kind: kind, URL: url, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a scrape error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
