package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// fakePage serves canned match counts and visibility per selector.
type fakePage struct {
	browser.Page

	counts  map[string]int
	visible map[string]bool
}

func (p *fakePage) Locator(selector string) browser.Locator {
	return &fakeLocator{page: p, selector: selector}
}

type fakeLocator struct {
	browser.Locator

	page     *fakePage
	selector string
}

func (l *fakeLocator) Count(ctx context.Context) (int, error) {
	return l.page.counts[l.selector], nil
}

func (l *fakeLocator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if l.page.visible[l.selector] {
		return nil
	}
	return fmt.Errorf("timeout waiting for %s", l.selector)
}

func newTestResolver(page *fakePage) *Resolver {
	return New(page, 10*time.Millisecond, 10*time.Millisecond, zerolog.Nop())
}

func clickAction(bundle *models.LocatorBundle, selector string) *models.MacroAction {
	return &models.MacroAction{
		SequenceID:    1,
		Kind:          models.ActionClick,
		Selector:      selector,
		LocatorBundle: bundle,
	}
}

func TestResolvePrefersID(t *testing.T) {
	page := &fakePage{
		counts:  map[string]int{"#buy-now": 1, "div.cart > button": 1},
		visible: map[string]bool{"#buy-now": true, "div.cart > button": true},
	}
	bundle := &models.LocatorBundle{Tag: "button", ID: "buy-now", XPath: "//div/button[1]"}

	_, strategy, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, "div.cart > button"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyID {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyID)
	}
}

func TestResolveFallsThroughToRawSelector(t *testing.T) {
	// ID gone, role+name ambiguous; the recorded CSS path still matches and
	// is allowed to be non-unique.
	page := &fakePage{
		counts: map[string]int{
			`//a[contains(normalize-space(.), "Amazon")]`: 2,
			"div.buy_clmn a": 3,
		},
		visible: map[string]bool{"div.buy_clmn a": true},
	}
	bundle := &models.LocatorBundle{
		Tag:  "a",
		Role: "link",
		Name: "Amazon",
	}

	_, strategy, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, "div.buy_clmn a"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyCSS {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyCSS)
	}
}

func TestResolveUsesXPathWhenCSSFails(t *testing.T) {
	page := &fakePage{
		counts:  map[string]int{"//html/body/div[2]/a[1]": 1},
		visible: map[string]bool{"//html/body/div[2]/a[1]": true},
	}
	bundle := &models.LocatorBundle{Tag: "a", XPath: "//html/body/div[2]/a[1]"}

	_, strategy, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, ".stale-class a"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyXPath {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyXPath)
	}
}

func TestResolveExhaustedReportsAttempts(t *testing.T) {
	page := &fakePage{counts: map[string]int{}, visible: map[string]bool{}}
	bundle := &models.LocatorBundle{Tag: "button", ID: "gone", XPath: "//div/button[9]"}

	_, _, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, "#gone"))
	var notFound *models.ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %T, want ElementNotFoundError", err)
	}
	if len(notFound.Attempts) < 3 {
		t.Fatalf("attempts = %+v, want at least id, css, xpath", notFound.Attempts)
	}
	if notFound.Attempts[0].Strategy != StrategyID {
		t.Fatalf("first attempt = %q, chain order broken", notFound.Attempts[0].Strategy)
	}
}

func TestResolveSkipsInvisibleMatch(t *testing.T) {
	// The ID matches a hidden element; the visible CSS match must win.
	page := &fakePage{
		counts:  map[string]int{"#hidden-dup": 1, "nav a.cart-link": 1},
		visible: map[string]bool{"nav a.cart-link": true},
	}
	bundle := &models.LocatorBundle{Tag: "a", ID: "hidden-dup"}

	_, strategy, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, "nav a.cart-link"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyCSS {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyCSS)
	}
}

func TestRoleNameSelectorScoping(t *testing.T) {
	bundle := &models.LocatorBundle{
		Role: "link",
		Name: "Barnes & Noble",
		Tag:  "a",
		Ancestors: []models.AncestorRef{
			{Tag: "div", Classes: []string{"buy_clmn"}},
			{Tag: "div", ID: "collapse-retailers"},
		},
	}
	sel := roleNameSelector(bundle)
	if !strings.Contains(sel, `//*[@id="collapse-retailers"]//a`) {
		t.Fatalf("selector should scope under the identified ancestor: %s", sel)
	}
	if !strings.Contains(sel, "Barnes & Noble") {
		t.Fatalf("selector should carry the name: %s", sel)
	}
}

func TestHrefSelector(t *testing.T) {
	bundle := &models.LocatorBundle{
		Tag:  "a",
		Href: "https://www.amazon.com/dp/0593135202?tag=prh-20",
	}
	if got := hrefSelector(bundle); got != `a[href*="www.amazon.com"]` {
		t.Fatalf("hrefSelector = %q", got)
	}

	bundle.Name = "Amazon Kindle"
	want := `//a[contains(@href, "www.amazon.com") and contains(normalize-space(.), "Amazon Kindle")]`
	if got := hrefSelector(bundle); got != want {
		t.Fatalf("named hrefSelector = %q, want %q", got, want)
	}

	if hrefSelector(&models.LocatorBundle{Tag: "button", Href: "https://x.com"}) != "" {
		t.Fatal("hrefSelector should only apply to anchors")
	}
}

func TestResolveHrefBeatsRawSelector(t *testing.T) {
	// Several same-host links exist; the name-filtered href match must win
	// before the ambiguous recorded CSS is even consulted.
	sel := `//a[contains(@href, "www.amazon.com") and contains(normalize-space(.), "Kindle")]`
	page := &fakePage{
		counts:  map[string]int{sel: 1, "div.buy_clmn a": 4},
		visible: map[string]bool{sel: true, "div.buy_clmn a": true},
	}
	bundle := &models.LocatorBundle{
		Tag:  "a",
		Name: "Kindle",
		Href: "https://www.amazon.com/kindle-dbs/detail",
	}

	_, strategy, err := newTestResolver(page).Resolve(context.Background(), clickAction(bundle, "div.buy_clmn a"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyHref {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyHref)
	}
}

func TestTextSelectorLengthLimit(t *testing.T) {
	long := strings.Repeat("x", 50)
	if textSelector(&models.LocatorBundle{Tag: "a", Text: long}) != "" {
		t.Fatal("texts of 50+ chars must not produce a selector")
	}
	if textSelector(&models.LocatorBundle{Tag: "a", Text: "Look Inside"}) == "" {
		t.Fatal("short anchor text should produce a selector")
	}
	if textSelector(&models.LocatorBundle{Tag: "div", Text: "plain"}) != "" {
		t.Fatal("non-clickable tags without a button role must not match by text")
	}
}
