package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// Strategy names, in the order the resolver tries them. Coordinate replay
// is the player's last resort and never produces a locator here.
const (
	StrategyID          = "id"
	StrategyRoleName    = "role-name"
	StrategyScopedCSS   = "scoped-css"
	StrategyCSS         = "css"
	StrategyHref        = "href"
	StrategyXPath       = "xpath"
	StrategyText        = "text"
	StrategyCoordinates = "coordinates"
)

// Resolver locates the target element of a recorded action on a live
// page, walking a fixed chain of strategies from most to least specific.
type Resolver struct {
	page      browser.Page
	shortWait time.Duration
	longWait  time.Duration
	logger    zerolog.Logger
}

func New(page browser.Page, shortWait, longWait time.Duration, logger zerolog.Logger) *Resolver {
	if shortWait <= 0 {
		shortWait = 3 * time.Second
	}
	if longWait <= 0 {
		longWait = 15 * time.Second
	}
	return &Resolver{
		page:      page,
		shortWait: shortWait,
		longWait:  longWait,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

type candidate struct {
	strategy string
	selector string
	// unique requires exactly one match; ambiguous structural selectors
	// would otherwise click the wrong element.
	unique bool
	wait   time.Duration
}

// Resolve returns a visible locator for the action's target and the name
// of the strategy that found it. Strategies are tried strictly in order;
// a later strategy is consulted only after every earlier one failed.
func (r *Resolver) Resolve(ctx context.Context, action *models.MacroAction) (browser.Locator, string, error) {
	candidates := r.plan(action)
	attempts := make([]models.StrategyAttempt, 0, len(candidates))

	for _, cand := range candidates {
		loc := r.page.Locator(cand.selector)
		n, err := loc.Count(ctx)
		if err != nil {
			attempts = append(attempts, models.StrategyAttempt{Strategy: cand.strategy, Reason: err.Error()})
			continue
		}
		if n == 0 {
			attempts = append(attempts, models.StrategyAttempt{Strategy: cand.strategy, Reason: "no matches"})
			continue
		}
		if cand.unique && n > 1 {
			attempts = append(attempts, models.StrategyAttempt{Strategy: cand.strategy, Reason: fmt.Sprintf("%d matches, need exactly one", n)})
			continue
		}
		if err := loc.WaitVisible(ctx, cand.wait); err != nil {
			attempts = append(attempts, models.StrategyAttempt{Strategy: cand.strategy, Reason: "matched but never became visible"})
			continue
		}
		r.logger.Debug().Str("strategy", cand.strategy).Str("selector", cand.selector).Msg("element resolved")
		return loc, cand.strategy, nil
	}

	return nil, "", &models.ElementNotFoundError{Selector: action.Selector, Attempts: attempts}
}

// plan builds the candidate list for an action. Candidates missing their
// required bundle data are skipped, keeping the chain order stable.
func (r *Resolver) plan(action *models.MacroAction) []candidate {
	var out []candidate
	bundle := action.LocatorBundle

	if bundle != nil && bundle.ID != "" {
		out = append(out, candidate{
			strategy: StrategyID,
			selector: "#" + cssEscape(bundle.ID),
			unique:   true,
			wait:     r.shortWait,
		})
	}
	if sel := roleNameSelector(bundle); sel != "" {
		out = append(out, candidate{strategy: StrategyRoleName, selector: sel, unique: true, wait: r.shortWait})
	}
	if sel := scopedCSSSelector(bundle); sel != "" {
		out = append(out, candidate{strategy: StrategyScopedCSS, selector: sel, unique: true, wait: r.shortWait})
	}
	if sel := hrefSelector(bundle); sel != "" {
		out = append(out, candidate{strategy: StrategyHref, selector: sel, unique: true, wait: r.shortWait})
	}
	if action.Selector != "" {
		out = append(out, candidate{strategy: StrategyCSS, selector: action.Selector, wait: r.longWait})
	}
	if bundle != nil && bundle.XPath != "" {
		out = append(out, candidate{strategy: StrategyXPath, selector: bundle.XPath, wait: r.shortWait})
	}
	if sel := textSelector(bundle); sel != "" {
		out = append(out, candidate{strategy: StrategyText, selector: sel, unique: true, wait: r.shortWait})
	}
	return out
}

// roleNameSelector approximates a role+name lookup with an XPath over the
// element kinds that carry each role, matched on normalized text, scoped
// under the nearest identified ancestor when one exists.
func roleNameSelector(bundle *models.LocatorBundle) string {
	if bundle == nil || bundle.Role == "" || bundle.Name == "" || len(bundle.Name) > 80 {
		return ""
	}
	var tags []string
	switch bundle.Role {
	case "link":
		tags = []string{"a"}
	case "button":
		tags = []string{"button", "input[@type='submit']", "input[@type='button']", "*[@role='button']"}
	default:
		return ""
	}
	name := strings.ReplaceAll(bundle.Name, `"`, "")
	scope := "//"
	if anc := scopeAncestor(bundle); anc != "" {
		scope = fmt.Sprintf("//*[@id=\"%s\"]//", anc)
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%s%s[contains(normalize-space(.), \"%s\")]", scope, tag, name))
	}
	return strings.Join(parts, " | ")
}

// scopedCSSSelector anchors the element's tag and stable classes under
// the nearest ancestor that has an id.
func scopedCSSSelector(bundle *models.LocatorBundle) string {
	if bundle == nil || bundle.Tag == "" {
		return ""
	}
	anc := scopeAncestor(bundle)
	if anc == "" {
		return ""
	}
	sel := bundle.Tag
	for i, cls := range bundle.Classes {
		if i == 2 {
			break
		}
		sel += "." + cssEscape(cls)
	}
	return "#" + cssEscape(anc) + " " + sel
}

// scopeAncestor returns the id of the nearest recorded ancestor that has
// one.
func scopeAncestor(bundle *models.LocatorBundle) string {
	if bundle == nil {
		return ""
	}
	for _, anc := range bundle.Ancestors {
		if anc.ID != "" {
			return anc.ID
		}
	}
	return ""
}

// hrefSelector matches retailer and outbound links by destination host,
// which survives the per-page path and tracking parameter churn those
// links carry. When the accessible name was recorded it narrows the match,
// since retailer blocks often repeat the same host across several links.
func hrefSelector(bundle *models.LocatorBundle) string {
	if bundle == nil || bundle.Href == "" || bundle.Tag != "a" {
		return ""
	}
	u, err := url.Parse(bundle.Href)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if bundle.Name != "" && len(bundle.Name) <= 80 {
		name := strings.ReplaceAll(bundle.Name, `"`, "")
		return fmt.Sprintf(`//a[contains(@href, "%s") and contains(normalize-space(.), "%s")]`, u.Hostname(), name)
	}
	return fmt.Sprintf(`a[href*="%s"]`, u.Hostname())
}

// textSelector matches clickable elements by their visible text. Only
// short texts qualify; long ones are too likely to have been truncated
// at capture time.
func textSelector(bundle *models.LocatorBundle) string {
	if bundle == nil || bundle.Text == "" || len(bundle.Text) >= 50 {
		return ""
	}
	switch bundle.Tag {
	case "a", "button":
	default:
		if bundle.Role != "button" && bundle.Role != "link" {
			return ""
		}
	}
	text := strings.ReplaceAll(bundle.Text, `"`, "")
	return fmt.Sprintf("//a[normalize-space(.)=\"%s\"] | //button[normalize-space(.)=\"%s\"] | //*[@role=\"button\"][normalize-space(.)=\"%s\"]", text, text, text)
}

func cssEscape(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteString(fmt.Sprintf("\\%c", r))
		}
	}
	return b.String()
}
