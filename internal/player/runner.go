package player

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/resolver"
	"github.com/slotheather55/webspark-sub000/internal/tagcapture"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// AuditReport is the result of probing one page with a catalog of
// interactions.
type AuditReport struct {
	URL           string                       `json:"url"`
	PageType      string                       `json:"pageType"`
	StartedAt     time.Time                    `json:"startedAt"`
	FinishedAt    time.Time                    `json:"finishedAt"`
	VendorObjects []tagcapture.VendorObjectHit `json:"vendorObjects"`
	ScriptVendors []string                     `json:"scriptVendors,omitempty"`
	LoadEvents    []models.TagEventRecord      `json:"loadEvents,omitempty"`
	Interactions  []models.InteractionOutcome  `json:"interactions"`
}

// Runner drives catalog audits: for a page type's interaction list it
// clicks each target on a freshly loaded page and reports which tracking
// events each click fired.
type Runner struct {
	driver browser.Driver
	cfg    *config.Config
	logger zerolog.Logger
}

func NewRunner(driver browser.Driver, cfg *config.Config, logger zerolog.Logger) *Runner {
	return &Runner{driver: driver, cfg: cfg, logger: logger.With().Str("component", "runner").Logger()}
}

// RunCatalog audits the URL with the built-in catalog for pageType. The
// page is reloaded before every interaction so clicks that navigate away
// cannot contaminate the next probe.
func (r *Runner) RunCatalog(ctx context.Context, url, pageType string) (*AuditReport, error) {
	return r.Run(ctx, url, pageType, CatalogFor(pageType))
}

// Run audits the URL with an explicit interaction list.
func (r *Runner) Run(ctx context.Context, url, pageType string, interactions []models.CatalogInteraction) (*AuditReport, error) {
	page, err := r.driver.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionInit, err)
	}
	defer page.Close()

	logger := r.logger.With().Str("url", url).Str("page_type", pageType).Logger()
	capture := tagcapture.NewBuffer(logger)
	capture.AttachNetwork(page)
	if err := capture.InstallPageHooks(ctx, page); err != nil {
		return nil, err
	}
	correlator := tagcapture.NewCorrelator(time.Duration(r.cfg.Capture.CorrelationWindowMs) * time.Millisecond)
	res := resolver.New(page,
		time.Duration(r.cfg.Playback.ResolveShortMs)*time.Millisecond,
		time.Duration(r.cfg.Playback.ResolveLongMs)*time.Millisecond,
		logger)

	report := &AuditReport{URL: url, PageType: pageType, StartedAt: time.Now()}

	if err := r.loadPage(ctx, page, url, logger); err != nil {
		return nil, err
	}
	if hits, err := capture.DetectVendorObjects(ctx, page); err == nil {
		report.VendorObjects = hits
	} else {
		logger.Debug().Err(err).Msg("vendor object detection failed")
	}
	if names, err := capture.DetectScriptVendors(ctx, page); err == nil {
		report.ScriptVendors = names
	} else {
		logger.Debug().Err(err).Msg("script vendor scan failed")
	}
	if err := capture.DrainPage(ctx, page); err == nil {
		report.LoadEvents = capture.Snapshot()
	}

	for i, interaction := range interactions {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i > 0 {
			// A fresh load per probe: the previous click may have left the
			// page entirely.
			if err := r.loadPage(ctx, page, url, logger); err != nil {
				return nil, err
			}
		}
		report.Interactions = append(report.Interactions,
			r.probe(ctx, page, capture, correlator, res, i+1, interaction, logger))
	}

	report.FinishedAt = time.Now()
	logger.Info().Int("interactions", len(report.Interactions)).Msg("catalog audit finished")
	return report, nil
}

func (r *Runner) loadPage(ctx context.Context, page browser.Page, url string, logger zerolog.Logger) error {
	navWait := time.Duration(r.cfg.Chrome.NavTimeoutMs) * time.Millisecond
	if err := page.Goto(ctx, url, browser.WaitDOMReady, navWait); err != nil {
		return &models.NavigationError{URL: url, Err: err}
	}
	wait(ctx, time.Duration(r.cfg.Capture.PostLoadWaitMs)*time.Millisecond)
	resolver.DismissOverlays(ctx, page, logger)
	return nil
}

// probe clicks one catalog target with a cleared buffer and correlates
// whatever fires inside the post-click window.
func (r *Runner) probe(ctx context.Context, page browser.Page, capture *tagcapture.Buffer, correlator *tagcapture.Correlator, res *resolver.Resolver, seq int, interaction models.CatalogInteraction, logger zerolog.Logger) models.InteractionOutcome {
	outcome := models.InteractionOutcome{
		Selector:    interaction.Selector,
		Description: interaction.Description,
	}

	action := &models.MacroAction{
		SequenceID:    seq,
		Kind:          models.ActionClick,
		Selector:      interaction.Selector,
		LocatorBundle: interaction.LocatorBundle,
		Description:   interaction.Description,
	}
	loc, strategy, err := res.Resolve(ctx, action)
	if err != nil {
		outcome.Error = err.Error()
		logger.Warn().Str("target", interaction.Description).Err(err).Msg("catalog target not found")
		return outcome
	}
	outcome.Strategy = strategy

	capture.Clear()
	clickedAt := time.Now()
	if err := loc.Click(ctx); err != nil {
		if ferr := loc.ForceClick(ctx); ferr != nil {
			outcome.Error = err.Error()
			return outcome
		}
	}
	outcome.Success = true

	wait(ctx, time.Duration(r.cfg.Capture.PostActionWaitMs)*time.Millisecond)
	if err := capture.DrainPage(ctx, page); err != nil {
		logger.Debug().Err(err).Msg("page drain failed after probe")
	}
	outcome.Events, outcome.Unattributed = correlator.Correlate(capture.Snapshot(), clickedAt, seq, strategy)
	logger.Info().Str("target", interaction.Description).Str("strategy", strategy).
		Int("events", len(outcome.Events)).Msg("catalog target probed")
	return outcome
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
