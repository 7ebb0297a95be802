package recorder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/locator"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

type fakeDriver struct {
	page *fakePage
}

func (d *fakeDriver) NewPage(ctx context.Context) (browser.Page, error) {
	return d.page, nil
}

type fakePage struct {
	consoleFns  []func(string)
	navigateFns []func(string)
	closeFns    []func()
	shots       int
	closed      bool
}

func (p *fakePage) Goto(ctx context.Context, url string, wait browser.WaitCondition, timeout time.Duration) error {
	return nil
}
func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error { return nil }
func (p *fakePage) AddInitScript(ctx context.Context, script string) error { return nil }
func (p *fakePage) Locator(selector string) browser.Locator {
	return &fakeLocator{}
}
func (p *fakePage) OnConsoleMessage(fn func(string)) { p.consoleFns = append(p.consoleFns, fn) }
func (p *fakePage) OnRequest(fn func(browser.Request)) {}
func (p *fakePage) OnNavigate(fn func(string)) { p.navigateFns = append(p.navigateFns, fn) }
func (p *fakePage) OnClose(fn func()) { p.closeFns = append(p.closeFns, fn) }
func (p *fakePage) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (p *fakePage) ClickAt(ctx context.Context, x, y float64) error { return nil }
func (p *fakePage) TypeText(ctx context.Context, text string) error { return nil }
func (p *fakePage) PressKey(ctx context.Context, key string) error { return nil }
func (p *fakePage) ScrollBy(ctx context.Context, deltaY float64) error { return nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.shots++
	return []byte(fmt.Sprintf("png-%d", p.shots)), nil
}
func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

func (p *fakePage) emitConsole(msg string) {
	for _, fn := range p.consoleFns {
		fn(msg)
	}
}

func (p *fakePage) emitNavigate(url string) {
	for _, fn := range p.navigateFns {
		fn(url)
	}
}

func (p *fakePage) emitClose() {
	for _, fn := range p.closeFns {
		fn()
	}
}

type fakeLocator struct{}

func (l *fakeLocator) Count(ctx context.Context) (int, error) { return 0, nil }
func (l *fakeLocator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	return errors.New("not visible")
}
func (l *fakeLocator) IsVisible(ctx context.Context) (bool, error) { return false, nil }
func (l *fakeLocator) Click(ctx context.Context) error { return nil }
func (l *fakeLocator) ForceClick(ctx context.Context) error { return nil }
func (l *fakeLocator) ScrollIntoView(ctx context.Context) error { return nil }
func (l *fakeLocator) Hover(ctx context.Context) error { return nil }
func (l *fakeLocator) Fill(ctx context.Context, text string) error { return nil }
func (l *fakeLocator) GetAttribute(ctx context.Context, name string) (string, error) {
	return "", nil
}
func (l *fakeLocator) InnerText(ctx context.Context) (string, error) { return "", nil }

func startTestSession(t *testing.T, page *fakePage) *Session {
	t.Helper()
	s, err := Start(context.Background(), &fakeDriver{page: page}, config.ChromeConfig{NavTimeoutMs: 1000},
		"test macro", "https://example.com/book", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func clickMessage(selector, url string) string {
	return locator.MessagePrefix + fmt.Sprintf(
		`{"kind":"click","selector":"%s","bundle":{"tag":"button","xpath":"//button[1]"},"timestamp":%d,"url":"%s"}`,
		selector, time.Now().UnixMilli(), url)
}

func TestRecorderCapturesActions(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	page.emitConsole(clickMessage("#add-to-cart", "https://example.com/book"))
	page.emitConsole("Tealium Payload Monitor: Initialized.")
	page.emitConsole(clickMessage("#checkout", "https://example.com/book"))

	actions := s.Actions()
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want pageload + 2 clicks", len(actions))
	}
	if actions[0].Kind != models.ActionPageLoad {
		t.Fatalf("first action = %s, want pageload", actions[0].Kind)
	}
	if actions[1].Selector != "#add-to-cart" || actions[2].Selector != "#checkout" {
		t.Fatalf("selectors = %q, %q", actions[1].Selector, actions[2].Selector)
	}

	macro, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := macro.Validate(); err != nil {
		t.Fatalf("recorded macro violates ordering: %v", err)
	}
	if !page.closed {
		t.Fatal("Stop must close the page")
	}
}

func TestRecorderRecordsFrameNavigations(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	page.emitConsole(clickMessage("#retailer-link", "https://example.com/book"))
	// A completed main-frame navigation arrives host-side, then a click on
	// the new document. Navigation must be recorded even with no further
	// in-page events.
	page.emitNavigate("https://example.com/cart")
	page.emitConsole(clickMessage("#confirm", "https://example.com/cart"))
	page.emitNavigate("https://example.com/checkout")

	actions := s.Actions()
	kinds := make([]models.ActionKind, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	want := []models.ActionKind{
		models.ActionPageLoad, models.ActionClick,
		models.ActionNavigate, models.ActionPageLoad, models.ActionClick,
		models.ActionNavigate, models.ActionPageLoad,
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if actions[2].Text != "https://example.com/cart" {
		t.Fatalf("navigate action should carry the new URL, got %q", actions[2].Text)
	}
}

func TestRecorderIgnoresRepeatedNavigation(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	// The initial load reports the start URL again; no action results.
	page.emitNavigate("https://example.com/book")

	actions := s.Actions()
	if len(actions) != 1 || actions[0].Kind != models.ActionPageLoad {
		t.Fatalf("actions = %+v, want the initial pageload only", actions)
	}
}

func TestRecorderDurationIsLastActionOffset(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	page.emitConsole(clickMessage("#add-to-cart", "https://example.com/book"))
	actions := s.Actions()
	lastOffset := actions[len(actions)-1].OffsetMs

	// Idling between the last action and stop must not stretch the macro.
	time.Sleep(150 * time.Millisecond)
	macro, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if macro.DurationMs != lastOffset {
		t.Fatalf("DurationMs = %d, want last offset %d", macro.DurationMs, lastOffset)
	}
	if macro.Description != "Recorded macro with 2 actions" {
		t.Fatalf("Description = %q", macro.Description)
	}
	if macro.Tags == nil {
		t.Fatal("Tags should be set, not nil")
	}
}

func TestRecorderIgnoresEventsAfterClose(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	page.emitClose()
	if s.Active() {
		t.Fatal("session should be inactive after page close")
	}
	before := len(s.Actions())
	page.emitConsole(clickMessage("#late", "https://example.com/book"))
	if len(s.Actions()) != before {
		t.Fatal("closed session must not record actions")
	}

	if err := s.Click(context.Background(), 1, 1); !errors.Is(err, models.ErrSessionClosed) {
		t.Fatalf("Click after close: got %v, want ErrSessionClosed", err)
	}
}

func TestRecorderScreenshotCache(t *testing.T) {
	page := &fakePage{}
	s := startTestSession(t, page)

	first, err := s.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("back-to-back screenshots should serve the cached frame")
	}
	if page.shots != 1 {
		t.Fatalf("browser captured %d times, want 1", page.shots)
	}
}
