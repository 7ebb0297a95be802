package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the chromedp driver.
type ChromeOptions struct {
	Headless  bool
	UserAgent string
	ViewportW int
	ViewportH int
}

// Chrome is the chromedp-backed Driver. Each NewPage call launches an
// isolated browser process so sessions never share state.
type Chrome struct {
	opts ChromeOptions
}

func NewChrome(opts ChromeOptions) *Chrome {
	if opts.ViewportW <= 0 {
		opts.ViewportW = 1280
	}
	if opts.ViewportH <= 0 {
		opts.ViewportH = 900
	}
	return &Chrome{opts: opts}
}

func (d *Chrome) NewPage(ctx context.Context) (Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(d.opts.ViewportW, d.opts.ViewportH),
	)
	if d.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(d.opts.UserAgent))
	}
	if path := findChromePath(); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	// The allocator parents on Background, not the caller's context: the
	// page outlives the request that created it and is torn down by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	pageCtx, ctxCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx:         pageCtx,
		cancelPage:  ctxCancel,
		cancelAlloc: allocCancel,
	}
	chromedp.ListenTarget(pageCtx, p.dispatch)

	startCtx, cancel := context.WithTimeout(pageCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, network.Enable()); err != nil {
		p.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	go func() {
		<-pageCtx.Done()
		p.fireClose()
	}()
	return p, nil
}

type chromePage struct {
	ctx         context.Context
	cancelPage  context.CancelFunc
	cancelAlloc context.CancelFunc

	mu          sync.Mutex
	consoleFns  []func(string)
	requestFns  []func(Request)
	navigateFns []func(string)
	closeFns    []func()

	closeOnce sync.Once
	fireOnce  sync.Once
}

// dispatch runs on chromedp's event goroutine; registered callbacks must
// not call back into the browser.
func (p *chromePage) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			if arg == nil || arg.Value == nil {
				continue
			}
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				parts = append(parts, s)
			} else {
				parts = append(parts, string(arg.Value))
			}
		}
		text := strings.Join(parts, " ")
		p.mu.Lock()
		fns := append(make([]func(string), 0, len(p.consoleFns)), p.consoleFns...)
		p.mu.Unlock()
		for _, fn := range fns {
			fn(text)
		}
	case *cdppage.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		url := e.Frame.URL
		p.mu.Lock()
		fns := append(make([]func(string), 0, len(p.navigateFns)), p.navigateFns...)
		p.mu.Unlock()
		for _, fn := range fns {
			fn(url)
		}
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		req := Request{
			URL:       e.Request.URL,
			Method:    e.Request.Method,
			PostData:  e.Request.PostData,
			Timestamp: time.Now(),
		}
		if e.WallTime != nil {
			req.Timestamp = e.WallTime.Time()
		}
		if e.Initiator != nil {
			req.Initiator = string(e.Initiator.Type)
		}
		if ct, ok := e.Request.Headers["Content-Type"].(string); ok {
			req.MimeType = ct
		}
		p.mu.Lock()
		fns := append(make([]func(Request), 0, len(p.requestFns)), p.requestFns...)
		p.mu.Unlock()
		for _, fn := range fns {
			fn(req)
		}
	}
}

// run executes chromedp actions against the page, honoring the caller's
// cancellation without detaching from the page's own context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Goto(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if wait == WaitDOMReady {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	return p.run(tctx, actions...)
}

func (p *chromePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, out))
}

func (p *chromePage) AddInitScript(ctx context.Context, script string) error {
	return p.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(script).Do(cctx)
		return err
	}))
}

func (p *chromePage) Locator(selector string) Locator {
	return &chromeLocator{page: p, selector: selector}
}

func (p *chromePage) OnConsoleMessage(fn func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consoleFns = append(p.consoleFns, fn)
}

func (p *chromePage) OnRequest(fn func(Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestFns = append(p.requestFns, fn)
}

func (p *chromePage) OnNavigate(fn func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigateFns = append(p.navigateFns, fn)
}

func (p *chromePage) OnClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeFns = append(p.closeFns, fn)
}

func (p *chromePage) fireClose() {
	p.fireOnce.Do(func() {
		p.mu.Lock()
		fns := append(make([]func(), 0, len(p.closeFns)), p.closeFns...)
		p.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
}

func (p *chromePage) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, chromedp.Location(&url))
	return url, err
}

func (p *chromePage) ClickAt(ctx context.Context, x, y float64) error {
	return p.run(ctx, chromedp.MouseClickXY(x, y))
}

func (p *chromePage) TypeText(ctx context.Context, text string) error {
	return p.run(ctx, chromedp.KeyEvent(text))
}

// Named keys the live-control surface accepts; anything else is sent as
// literal characters.
var namedKeys = map[string]string{
	"Enter":     "\r",
	"Tab":       "\t",
	"Escape":    "\u001b",
	"Backspace": "\b",
	"Delete":    "\u007f",
}

func (p *chromePage) PressKey(ctx context.Context, key string) error {
	if seq, ok := namedKeys[key]; ok {
		key = seq
	}
	return p.run(ctx, chromedp.KeyEvent(key))
}

func (p *chromePage) ScrollBy(ctx context.Context, deltaY float64) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %f)", deltaY), nil))
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.cancelPage()
		p.cancelAlloc()
	})
	return nil
}

type chromeLocator struct {
	page     *chromePage
	selector string
}

func (l *chromeLocator) isXPath() bool {
	return strings.HasPrefix(l.selector, "//") || strings.HasPrefix(l.selector, "(//")
}

func (l *chromeLocator) queryOpt() chromedp.QueryOption {
	if l.isXPath() {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsElement yields a JS expression resolving to the first matched node or
// null, for evaluation-based checks that must not block.
func (l *chromeLocator) jsElement() string {
	if l.isXPath() {
		return fmt.Sprintf(
			"document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			l.selector)
	}
	return fmt.Sprintf("document.querySelector(%q)", l.selector)
}

func (l *chromeLocator) Count(ctx context.Context) (int, error) {
	var script string
	if l.isXPath() {
		script = fmt.Sprintf(
			"document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength",
			l.selector)
	} else {
		script = fmt.Sprintf("document.querySelectorAll(%q).length", l.selector)
	}
	var n int
	if err := l.page.Evaluate(ctx, script, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *chromeLocator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.page.run(tctx, chromedp.WaitVisible(l.selector, l.queryOpt()))
}

func (l *chromeLocator) IsVisible(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		const r = el.getBoundingClientRect();
		const s = getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	})()`, l.jsElement())
	var visible bool
	if err := l.page.Evaluate(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

func (l *chromeLocator) Click(ctx context.Context) error {
	return l.page.run(ctx, chromedp.Click(l.selector, l.queryOpt()))
}

func (l *chromeLocator) ForceClick(ctx context.Context) error {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.click();
		return true;
	})()`, l.jsElement())
	var ok bool
	if err := l.page.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("force click: no element for %q", l.selector)
	}
	return nil
}

func (l *chromeLocator) ScrollIntoView(ctx context.Context) error {
	return l.page.run(ctx, chromedp.ScrollIntoView(l.selector, l.queryOpt()))
}

func (l *chromeLocator) Hover(ctx context.Context) error {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
		el.dispatchEvent(new MouseEvent('mouseenter', {bubbles: true}));
		return true;
	})()`, l.jsElement())
	var ok bool
	if err := l.page.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("hover: no element for %q", l.selector)
	}
	return nil
}

func (l *chromeLocator) Fill(ctx context.Context, text string) error {
	return l.page.run(ctx,
		chromedp.Clear(l.selector, l.queryOpt()),
		chromedp.SendKeys(l.selector, text, l.queryOpt()),
	)
}

func (l *chromeLocator) GetAttribute(ctx context.Context, name string) (string, error) {
	var value string
	var ok bool
	err := l.page.run(ctx, chromedp.AttributeValue(l.selector, name, &value, &ok, l.queryOpt()))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (l *chromeLocator) InnerText(ctx context.Context) (string, error) {
	var text string
	err := l.page.run(ctx, chromedp.Text(l.selector, &text, l.queryOpt()))
	return text, err
}
