package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/resolver"
	"github.com/slotheather55/webspark-sub000/internal/tagcapture"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// Session replays one macro on a fresh page, resolving each action's
// target on the live DOM and attributing captured tag events to the
// action that fired them.
type Session struct {
	ID    string
	macro *models.Macro

	page       browser.Page
	res        *resolver.Resolver
	capture    *tagcapture.Buffer
	correlator *tagcapture.Correlator

	playCfg config.PlaybackConfig
	capCfg  config.CaptureConfig
	navWait time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	state     models.PlaybackState
	outcomes  []models.ActionOutcome
	startedAt time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSession prepares a playback session: a fresh page with tag capture
// wired in. Run starts the replay.
func NewSession(ctx context.Context, driver browser.Driver, cfg *config.Config, macro *models.Macro, logger zerolog.Logger) (*Session, error) {
	if err := macro.Validate(); err != nil {
		return nil, fmt.Errorf("macro %s: %w", macro.ID, err)
	}
	page, err := driver.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionInit, err)
	}

	s := &Session{
		ID:      uuid.New().String(),
		macro:   macro,
		page:    page,
		playCfg: cfg.Playback,
		capCfg:  cfg.Capture,
		navWait: time.Duration(cfg.Chrome.NavTimeoutMs) * time.Millisecond,
		state:   models.PlaybackIdle,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.logger = logger.With().Str("component", "player").
		Str("playback_id", s.ID).Str("macro_id", macro.ID).Logger()

	s.capture = tagcapture.NewBuffer(s.logger)
	s.correlator = tagcapture.NewCorrelator(time.Duration(cfg.Capture.CorrelationWindowMs) * time.Millisecond)
	s.capture.AttachNetwork(page)
	if err := s.capture.InstallPageHooks(ctx, page); err != nil {
		page.Close()
		return nil, err
	}
	s.res = resolver.New(page,
		time.Duration(cfg.Playback.ResolveShortMs)*time.Millisecond,
		time.Duration(cfg.Playback.ResolveLongMs)*time.Millisecond,
		s.logger)

	page.OnClose(func() { s.Stop() })
	return s, nil
}

// State returns the current playback state.
func (s *Session) State() models.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcomes returns the per-action results so far.
func (s *Session) Outcomes() []models.ActionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActionOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Stop requests a cooperative stop. The current action finishes; no
// further actions start.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done closes when the replay has finished for any reason.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Run replays the macro to completion and returns the summary. It blocks;
// callers wanting progress watch State and Outcomes. The page is closed
// before returning.
func (s *Session) Run(ctx context.Context) *models.PlaybackSummary {
	s.mu.Lock()
	s.state = models.PlaybackRunning
	s.startedAt = time.Now()
	s.mu.Unlock()
	defer close(s.done)
	defer s.page.Close()

	final := models.PlaybackCompleted
	if err := s.navigate(ctx, s.macro.URL); err != nil {
		s.logger.Error().Err(err).Str("url", s.macro.URL).Msg("initial navigation failed")
		final = models.PlaybackFailed
	} else {
		s.sleep(ctx, time.Duration(s.capCfg.PostLoadWaitMs)*time.Millisecond)
		resolver.DismissOverlays(ctx, s.page, s.logger)
		final = s.runActions(ctx)
	}

	if s.stopped() && final == models.PlaybackCompleted {
		final = models.PlaybackStopped
	}
	s.mu.Lock()
	s.state = final
	summary := &models.PlaybackSummary{
		PlaybackID: s.ID,
		MacroID:    s.macro.ID,
		MacroName:  s.macro.Name,
		State:      final,
		Outcomes:   append([]models.ActionOutcome(nil), s.outcomes...),
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
	}
	s.mu.Unlock()
	s.logger.Info().Str("state", string(final)).Int("actions", len(summary.Outcomes)).Msg("playback finished")
	return summary
}

func (s *Session) runActions(ctx context.Context) models.PlaybackState {
	var prevOffset int64
	for i := range s.macro.Actions {
		action := &s.macro.Actions[i]
		if s.stopped() || ctx.Err() != nil {
			s.record(action, models.ActionSkipped, "", time.Now(), nil, "stopped before action")
			return models.PlaybackStopped
		}

		if i > 0 {
			s.sleep(ctx, s.clampWait(action.OffsetMs-prevOffset))
			if s.stopped() || ctx.Err() != nil {
				s.record(action, models.ActionSkipped, "", time.Now(), nil, "stopped before action")
				return models.PlaybackStopped
			}
		}
		prevOffset = action.OffsetMs

		s.capture.Clear()
		started := time.Now()
		strategy, performedAt, err := s.execute(ctx, action)
		events := s.collect(ctx, action, performedAt, strategy)

		if err != nil {
			s.record(action, models.ActionFailed, strategy, started, events, err.Error())
			s.logger.Warn().Int("seq", action.SequenceID).Err(err).Msg("action failed")
			if s.playCfg.Strict {
				return models.PlaybackFailed
			}
			continue
		}
		s.record(action, models.ActionOK, strategy, started, events, "")
	}
	return models.PlaybackCompleted
}

// collect waits out the post-action window, drains the page hooks and
// attributes the buffered events to the action just performed. performedAt
// is the moment of the actual interaction, after element resolution, so
// slow strategy fallbacks cannot eat the correlation window.
func (s *Session) collect(ctx context.Context, action *models.MacroAction, performedAt time.Time, strategy string) []models.CorrelatedEvent {
	s.sleep(ctx, time.Duration(s.capCfg.PostActionWaitMs)*time.Millisecond)
	if err := s.capture.DrainPage(ctx, s.page); err != nil {
		s.logger.Debug().Err(err).Msg("page drain failed")
	}
	events, _ := s.correlator.Correlate(s.capture.Snapshot(), performedAt, action.SequenceID, strategy)
	return events
}

func (s *Session) record(action *models.MacroAction, status models.ActionStatus, strategy string, started time.Time, events []models.CorrelatedEvent, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, models.ActionOutcome{
		SequenceID:  action.SequenceID,
		Kind:        action.Kind,
		Description: action.Description,
		Status:      status,
		Strategy:    strategy,
		Error:       errText,
		DurationMs:  time.Since(started).Milliseconds(),
		Events:      events,
	})
}

// clampWait bounds the recorded inter-action gap so replays neither race
// ahead of slow pages nor crawl through long idle stretches.
func (s *Session) clampWait(gapMs int64) time.Duration {
	min := int64(s.playCfg.MinWaitMs)
	max := int64(s.playCfg.MaxWaitMs)
	if gapMs < min {
		gapMs = min
	}
	if gapMs > max {
		gapMs = max
	}
	return time.Duration(gapMs) * time.Millisecond
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.stopCh:
	case <-ctx.Done():
	}
}

// execute performs one action, returning the resolution strategy used for
// element-targeted kinds and the moment the interaction itself happened.
// That moment anchors correlation; resolution time must not count against
// the attribution window.
func (s *Session) execute(ctx context.Context, action *models.MacroAction) (string, time.Time, error) {
	switch action.Kind {
	case models.ActionClick:
		return s.click(ctx, action)
	case models.ActionType:
		return s.typeText(ctx, action)
	case models.ActionHover:
		return s.hover(ctx, action)
	case models.ActionScroll:
		err := s.scroll(ctx, action)
		return "", time.Now(), err
	case models.ActionNavigate:
		err := s.navigateAction(ctx, action)
		return "", time.Now(), err
	case models.ActionPageLoad, models.ActionWait:
		return "", time.Now(), nil
	default:
		return "", time.Now(), &models.ActionExecutionError{Kind: action.Kind, Selector: action.Selector,
			Err: fmt.Errorf("unsupported action kind")}
	}
}

func (s *Session) click(ctx context.Context, action *models.MacroAction) (string, time.Time, error) {
	loc, strategy, err := s.res.Resolve(ctx, action)
	if err != nil {
		var notFound *models.ElementNotFoundError
		if errors.As(err, &notFound) && action.Coordinates != nil {
			// Last resort: replay the recorded viewport coordinates.
			performedAt := time.Now()
			if cerr := s.page.ClickAt(ctx, action.Coordinates.X, action.Coordinates.Y); cerr == nil {
				return resolver.StrategyCoordinates, performedAt, nil
			}
		}
		return "", time.Now(), err
	}
	if err := loc.ScrollIntoView(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("scroll into view failed")
	}
	performedAt := time.Now()
	if err := loc.Click(ctx); err != nil {
		// One forced retry covers elements behind decorative overlays.
		performedAt = time.Now()
		if ferr := loc.ForceClick(ctx); ferr == nil {
			return strategy, performedAt, nil
		}
		return strategy, performedAt, &models.ActionExecutionError{Kind: action.Kind, Selector: action.Selector, Err: err}
	}
	return strategy, performedAt, nil
}

func (s *Session) typeText(ctx context.Context, action *models.MacroAction) (string, time.Time, error) {
	loc, strategy, err := s.res.Resolve(ctx, action)
	if err != nil {
		return "", time.Now(), err
	}
	performedAt := time.Now()
	if err := loc.Fill(ctx, action.Text); err != nil {
		return strategy, performedAt, &models.ActionExecutionError{Kind: action.Kind, Selector: action.Selector, Err: err}
	}
	return strategy, performedAt, nil
}

func (s *Session) hover(ctx context.Context, action *models.MacroAction) (string, time.Time, error) {
	loc, strategy, err := s.res.Resolve(ctx, action)
	if err != nil {
		return "", time.Now(), err
	}
	performedAt := time.Now()
	if err := loc.Hover(ctx); err != nil {
		return strategy, performedAt, &models.ActionExecutionError{Kind: action.Kind, Selector: action.Selector, Err: err}
	}
	return strategy, performedAt, nil
}

func (s *Session) scroll(ctx context.Context, action *models.MacroAction) error {
	if action.Coordinates == nil {
		return nil
	}
	script := fmt.Sprintf("window.scrollTo(%f, %f)", action.Coordinates.X, action.Coordinates.Y)
	if err := s.page.Evaluate(ctx, script, nil); err != nil {
		return &models.ActionExecutionError{Kind: action.Kind, Selector: action.Selector, Err: err}
	}
	return nil
}

func (s *Session) navigateAction(ctx context.Context, action *models.MacroAction) error {
	if err := s.navigate(ctx, action.Text); err != nil {
		return err
	}
	resolver.DismissOverlays(ctx, s.page, s.logger)
	return nil
}

// navigate loads a URL, retrying once with a looser wait condition when
// the full ready wait times out on slow third-party resources.
func (s *Session) navigate(ctx context.Context, url string) error {
	err := s.page.Goto(ctx, url, browser.WaitDOMReady, s.navWait)
	if err == nil {
		return nil
	}
	s.logger.Debug().Err(err).Str("url", url).Msg("navigation retry with loose wait")
	if rerr := s.page.Goto(ctx, url, browser.WaitNone, s.navWait*2); rerr != nil {
		return &models.NavigationError{URL: url, Err: rerr}
	}
	return nil
}
