package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/player"
	"github.com/slotheather55/webspark-sub000/internal/recorder"
	"github.com/slotheather55/webspark-sub000/internal/store"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// Manager is the registry of live recording and playback sessions. Each
// session owns an exclusive page; the manager hands out IDs and routes
// control calls to the right session.
type Manager struct {
	driver browser.Driver
	cfg    *config.Config
	macros *store.MacroStore
	runner *player.Runner
	logger zerolog.Logger

	mu         sync.RWMutex
	recordings map[string]*recorder.Session
	playbacks  map[string]*player.Session
	summaries  map[string]*models.PlaybackSummary
}

func NewManager(driver browser.Driver, cfg *config.Config, macros *store.MacroStore, logger zerolog.Logger) *Manager {
	return &Manager{
		driver:     driver,
		cfg:        cfg,
		macros:     macros,
		runner:     player.NewRunner(driver, cfg, logger),
		logger:     logger.With().Str("component", "session").Logger(),
		recordings: make(map[string]*recorder.Session),
		playbacks:  make(map[string]*player.Session),
		summaries:  make(map[string]*models.PlaybackSummary),
	}
}

// Macros exposes the macro store for read endpoints.
func (m *Manager) Macros() *store.MacroStore { return m.macros }

// StartRecording opens a new recording session on the URL.
func (m *Manager) StartRecording(ctx context.Context, name, url string) (*recorder.Session, error) {
	s, err := recorder.Start(ctx, m.driver, m.cfg.Chrome, name, url, m.logger)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.recordings[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Recording looks up a live recording session.
func (m *Manager) Recording(id string) (*recorder.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.recordings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return s, nil
}

// StopRecording ends a recording and, when persist is set, saves the
// macro. The session is removed from the registry either way.
func (m *Manager) StopRecording(ctx context.Context, id string, persist bool) (*models.Macro, error) {
	s, err := m.Recording(id)
	if err != nil {
		return nil, err
	}
	macro, err := s.Stop(ctx)

	m.mu.Lock()
	delete(m.recordings, id)
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if persist {
		if err := m.macros.Save(macro); err != nil {
			return macro, err
		}
	}
	return macro, nil
}

// StartPlayback loads the macro and begins replaying it in the
// background. The returned session reports progress; the summary is kept
// after it finishes.
func (m *Manager) StartPlayback(ctx context.Context, macroID string) (*player.Session, error) {
	macro, err := m.macros.Load(macroID)
	if err != nil {
		return nil, err
	}
	s, err := player.NewSession(ctx, m.driver, m.cfg, macro, m.logger)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.playbacks[s.ID] = s
	m.mu.Unlock()

	go func() {
		// Playback outlives the HTTP request that started it.
		summary := s.Run(context.Background())
		m.mu.Lock()
		m.summaries[s.ID] = summary
		m.mu.Unlock()
	}()
	return s, nil
}

// Playback looks up a playback session by ID.
func (m *Manager) Playback(id string) (*player.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.playbacks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrPlaybackNotFound, id)
	}
	return s, nil
}

// Summary returns the terminal report for a finished playback, or nil
// while it is still running.
func (m *Manager) Summary(id string) (*models.PlaybackSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if summary, ok := m.summaries[id]; ok {
		return summary, nil
	}
	if _, ok := m.playbacks[id]; ok {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrPlaybackNotFound, id)
}

// StopPlayback requests a cooperative stop.
func (m *Manager) StopPlayback(id string) error {
	s, err := m.Playback(id)
	if err != nil {
		return err
	}
	s.Stop()
	return nil
}

// RunCatalogAudit probes a URL with the page type's interaction catalog.
func (m *Manager) RunCatalogAudit(ctx context.Context, url, pageType string) (*player.AuditReport, error) {
	return m.runner.RunCatalog(ctx, url, pageType)
}

// RunInteractionAudit probes a URL with a caller-supplied interaction list.
func (m *Manager) RunInteractionAudit(ctx context.Context, url, pageType string, interactions []models.CatalogInteraction) (*player.AuditReport, error) {
	return m.runner.Run(ctx, url, pageType, interactions)
}

// StopAll shuts down every live session. Used during server shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	recordings := make([]*recorder.Session, 0, len(m.recordings))
	for _, s := range m.recordings {
		recordings = append(recordings, s)
	}
	playbacks := make([]*player.Session, 0, len(m.playbacks))
	for _, s := range m.playbacks {
		playbacks = append(playbacks, s)
	}
	m.recordings = make(map[string]*recorder.Session)
	m.playbacks = make(map[string]*player.Session)
	m.summaries = make(map[string]*models.PlaybackSummary)
	m.mu.Unlock()

	for _, s := range recordings {
		if _, err := s.Stop(ctx); err != nil {
			m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("recording stop failed")
		}
	}
	for _, s := range playbacks {
		s.Stop()
	}
	for _, s := range playbacks {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return
		}
	}
}
