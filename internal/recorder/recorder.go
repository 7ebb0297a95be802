package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/locator"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/resolver"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// screenshotTTL bounds how often live-view polling hits the browser.
const screenshotTTL = 200 * time.Millisecond

// Session owns one recording: a dedicated page with the capture script
// injected, an ordered action list, and a live-control surface for
// driving the page remotely while it records.
type Session struct {
	ID       string
	StartURL string
	Name     string

	page   browser.Page
	logger zerolog.Logger

	mu        sync.Mutex
	actions   []models.MacroAction
	startTime time.Time
	lastURL   string
	active    bool

	shotMu   sync.Mutex
	lastShot []byte
	shotTime time.Time
}

// Start opens a fresh page, installs the recording script, navigates to
// the start URL and begins capturing actions. The page is exclusive to
// this session until Stop.
func Start(ctx context.Context, driver browser.Driver, chromeCfg config.ChromeConfig, name, startURL string, logger zerolog.Logger) (*Session, error) {
	page, err := driver.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionInit, err)
	}

	s := &Session{
		ID:        uuid.New().String(),
		StartURL:  startURL,
		Name:      name,
		page:      page,
		startTime: time.Now(),
		lastURL:   startURL,
		active:    true,
	}
	s.logger = logger.With().Str("component", "recorder").Str("session_id", s.ID).Logger()

	page.OnConsoleMessage(s.handleConsole)
	page.OnNavigate(s.handleNavigate)
	page.OnClose(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		s.logger.Warn().Msg("recording page closed unexpectedly")
	})

	if err := page.AddInitScript(ctx, locator.RecordingScript()); err != nil {
		page.Close()
		return nil, fmt.Errorf("%w: install recording script: %v", models.ErrSessionInit, err)
	}

	navTimeout := time.Duration(chromeCfg.NavTimeoutMs) * time.Millisecond
	if err := page.Goto(ctx, startURL, browser.WaitDOMReady, navTimeout); err != nil {
		page.Close()
		return nil, &models.NavigationError{URL: startURL, Err: err}
	}
	// Init scripts only run on documents loaded after registration; the
	// first document needs the script evaluated directly.
	if err := page.Evaluate(ctx, locator.RecordingScript(), nil); err != nil {
		page.Close()
		return nil, fmt.Errorf("%w: inject recording script: %v", models.ErrSessionInit, err)
	}

	resolver.DismissOverlays(ctx, page, s.logger)
	s.appendAction(models.ActionPageLoad, "", startURL, nil, nil)
	s.logger.Info().Str("url", startURL).Msg("recording started")
	return s, nil
}

// handleConsole runs on the browser event goroutine; it must not call
// back into the page.
func (s *Session) handleConsole(msg string) {
	ev, err := locator.DecodeMessage(msg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dropped malformed recorder event")
		return
	}
	if ev == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.appendActionLocked(models.ActionKind(ev.Kind), ev.Selector, ev.Text, ev.Coordinates, ev.Bundle)
}

// handleNavigate records completed main-frame navigations. It runs on the
// browser event goroutine; it must not call back into the page.
func (s *Session) handleNavigate(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || url == "" || url == s.lastURL {
		return
	}
	s.lastURL = url
	s.appendActionLocked(models.ActionNavigate, "", url, nil, nil)
	s.appendActionLocked(models.ActionPageLoad, "", url, nil, nil)
}

func (s *Session) appendAction(kind models.ActionKind, selector, text string, coords *models.Coordinates, bundle *models.LocatorBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendActionLocked(kind, selector, text, coords, bundle)
}

// appendActionLocked assigns the next sequence number and a non-decreasing
// offset. Callers hold s.mu.
func (s *Session) appendActionLocked(kind models.ActionKind, selector, text string, coords *models.Coordinates, bundle *models.LocatorBundle) {
	offset := time.Since(s.startTime).Milliseconds()
	if n := len(s.actions); n > 0 && offset < s.actions[n-1].OffsetMs {
		offset = s.actions[n-1].OffsetMs
	}
	action := models.MacroAction{
		SequenceID:    len(s.actions) + 1,
		OffsetMs:      offset,
		Kind:          kind,
		Selector:      selector,
		Text:          text,
		Coordinates:   coords,
		LocatorBundle: bundle,
		Description:   locator.Describe(kind, selector, bundle, text),
	}
	s.actions = append(s.actions, action)
	s.logger.Debug().Int("seq", action.SequenceID).Str("kind", string(kind)).
		Str("selector", selector).Msg("action recorded")
}

// Actions returns a copy of the actions recorded so far.
func (s *Session) Actions() []models.MacroAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MacroAction, len(s.actions))
	copy(out, s.actions)
	return out
}

// Active reports whether the session is still capturing.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Click dispatches a trusted click at viewport coordinates. The in-page
// script records it like any user click.
func (s *Session) Click(ctx context.Context, x, y float64) error {
	if !s.Active() {
		return models.ErrSessionClosed
	}
	return s.page.ClickAt(ctx, x, y)
}

// Type sends literal characters to the focused element.
func (s *Session) Type(ctx context.Context, text string) error {
	if !s.Active() {
		return models.ErrSessionClosed
	}
	return s.page.TypeText(ctx, text)
}

// PressKey sends a named key such as Enter or Escape.
func (s *Session) PressKey(ctx context.Context, key string) error {
	if !s.Active() {
		return models.ErrSessionClosed
	}
	return s.page.PressKey(ctx, key)
}

// Scroll scrolls the window vertically by deltaY pixels.
func (s *Session) Scroll(ctx context.Context, deltaY float64) error {
	if !s.Active() {
		return models.ErrSessionClosed
	}
	return s.page.ScrollBy(ctx, deltaY)
}

// Screenshot returns a PNG of the page, reusing a recent capture when
// polled faster than the browser should be asked.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if !s.Active() {
		return nil, models.ErrSessionClosed
	}
	s.shotMu.Lock()
	defer s.shotMu.Unlock()
	if s.lastShot != nil && time.Since(s.shotTime) < screenshotTTL {
		return s.lastShot, nil
	}
	shot, err := s.page.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	s.lastShot = shot
	s.shotTime = time.Now()
	return shot, nil
}

// Stop ends the recording, closes the page and returns the recorded
// macro. Persisting it is the caller's decision.
func (s *Session) Stop(ctx context.Context) (*models.Macro, error) {
	s.mu.Lock()
	wasActive := s.active
	s.active = false
	s.mu.Unlock()

	if wasActive {
		// Push out any debounced input still pending in the page.
		if err := s.page.Evaluate(ctx, "window.__macroRecorder && window.__macroRecorder.flush()", nil); err != nil {
			s.logger.Debug().Err(err).Msg("input flush failed on stop")
		}
	}

	s.mu.Lock()
	// Duration is the last action's offset, not wall time: idling before
	// stop must not stretch replays.
	var durationMs int64
	if n := len(s.actions); n > 0 {
		durationMs = s.actions[n-1].OffsetMs
	}
	macro := &models.Macro{
		ID:          s.ID,
		Name:        s.Name,
		URL:         s.StartURL,
		Description: fmt.Sprintf("Recorded macro with %d actions", len(s.actions)),
		Tags:        []string{},
		CreatedAt:   s.startTime,
		DurationMs:  durationMs,
		Actions:     make([]models.MacroAction, len(s.actions)),
	}
	copy(macro.Actions, s.actions)
	s.mu.Unlock()

	if err := s.page.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("page close failed")
	}
	s.logger.Info().Int("actions", len(macro.Actions)).
		Int64("duration_ms", macro.DurationMs).Msg("recording stopped")
	return macro, nil
}
