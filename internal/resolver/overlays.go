package resolver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// Accept buttons for the consent and promo overlays that sit on top of
// retail pages and swallow clicks. Checked in order; each visible one is
// clicked once.
var overlaySelectors = []string{
	"button#truste-consent-button",
	"#onetrust-accept-btn-handler",
	"button[id*='cookie-accept']",
	"button[class*='cookie'][class*='accept']",
	".cc-allow",
	"#gdpr-consent-accept",
	"button[aria-label='Close dialog']",
	".modal-close[data-dismiss]",
}

// DismissOverlays clicks through any visible consent or promo overlays.
// Failures are logged and ignored; a stuck overlay surfaces later as a
// click failure on the real target.
func DismissOverlays(ctx context.Context, page browser.Page, logger zerolog.Logger) {
	for _, sel := range overlaySelectors {
		loc := page.Locator(sel)
		visible, err := loc.IsVisible(ctx)
		if err != nil || !visible {
			continue
		}
		if err := loc.ForceClick(ctx); err != nil {
			logger.Debug().Str("selector", sel).Err(err).Msg("overlay dismiss failed")
			continue
		}
		logger.Debug().Str("selector", sel).Msg("overlay dismissed")
		time.Sleep(500 * time.Millisecond)
	}
}
