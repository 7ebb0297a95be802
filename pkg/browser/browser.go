// Package browser defines the capability contract the recording and
// playback engines consume, plus its chromedp-backed implementation.
// Sessions depend on the interfaces only, so tests can substitute fakes.
package browser

import (
	"context"
	"time"
)

// WaitCondition selects how long Goto blocks after navigation commits.
type WaitCondition string

const (
	// WaitDOMReady waits for the document body to exist.
	WaitDOMReady WaitCondition = "domready"
	// WaitNone returns as soon as navigation is issued. Used as the
	// looser retry condition after a navigation timeout.
	WaitNone WaitCondition = "none"
)

// Request is an outbound network request observed on the page.
type Request struct {
	URL       string
	Method    string
	PostData  string
	MimeType  string
	Initiator string
	Timestamp time.Time
}

// Locator addresses zero or more elements on a live page. Selectors
// starting with "//" are treated as XPath, anything else as CSS.
type Locator interface {
	Count(ctx context.Context) (int, error)
	WaitVisible(ctx context.Context, timeout time.Duration) error
	IsVisible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// ForceClick dispatches a synthetic click directly on the node,
	// bypassing hit-testing. Used for the one permitted retry after a
	// click is intercepted.
	ForceClick(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Hover(ctx context.Context) error
	// Fill clears the field and types text into it.
	Fill(ctx context.Context, text string) error
	GetAttribute(ctx context.Context, name string) (string, error)
	InnerText(ctx context.Context) (string, error)
}

// Page is one exclusively-owned browser page/context.
type Page interface {
	Goto(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error
	Evaluate(ctx context.Context, script string, out interface{}) error
	// AddInitScript installs a script that runs in every new document
	// before any site code.
	AddInitScript(ctx context.Context, script string) error
	Locator(selector string) Locator
	// OnConsoleMessage registers a callback for console.log text.
	OnConsoleMessage(fn func(text string))
	// OnRequest registers a callback for every outbound request.
	OnRequest(fn func(req Request))
	// OnNavigate registers a callback fired with the new URL on every
	// completed main-frame navigation.
	OnNavigate(fn func(url string))
	// OnClose fires once when the page or its context goes away,
	// whether by Close or unexpectedly.
	OnClose(fn func())
	CurrentURL(ctx context.Context) (string, error)

	// Live-control primitives for the interactive preview.
	ClickAt(ctx context.Context, x, y float64) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
	ScrollBy(ctx context.Context, deltaY float64) error
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the page and its browser context. Idempotent and
	// safe on every exit path.
	Close() error
}

// Driver creates pages. Each page owns an isolated browser context for
// its whole lifetime.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
}
