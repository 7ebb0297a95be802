package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/store"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

type fakeDriver struct{}

func (d *fakeDriver) NewPage(ctx context.Context) (browser.Page, error) {
	return &fakePage{counts: map[string]int{}, visible: map[string]bool{}}, nil
}

type fakePage struct {
	counts  map[string]int
	visible map[string]bool
	closed  bool
}

func (p *fakePage) Goto(ctx context.Context, url string, wait browser.WaitCondition, timeout time.Duration) error {
	return nil
}
func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	if s, ok := out.(*string); ok {
		*s = "[]"
	}
	return nil
}
func (p *fakePage) AddInitScript(ctx context.Context, script string) error { return nil }
func (p *fakePage) Locator(selector string) browser.Locator {
	return &fakeLocator{page: p, selector: selector}
}
func (p *fakePage) OnConsoleMessage(fn func(string)) {}
func (p *fakePage) OnRequest(fn func(browser.Request)) {}
func (p *fakePage) OnNavigate(fn func(string)) {}
func (p *fakePage) OnClose(fn func()) {}
func (p *fakePage) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (p *fakePage) ClickAt(ctx context.Context, x, y float64) error { return nil }
func (p *fakePage) TypeText(ctx context.Context, text string) error { return nil }
func (p *fakePage) PressKey(ctx context.Context, key string) error { return nil }
func (p *fakePage) ScrollBy(ctx context.Context, deltaY float64) error { return nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }
func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeLocator struct {
	page     *fakePage
	selector string
}

func (l *fakeLocator) Count(ctx context.Context) (int, error) { return l.page.counts[l.selector], nil }
func (l *fakeLocator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if l.page.visible[l.selector] {
		return nil
	}
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

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	macros, err := store.NewMacroStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Chrome: config.ChromeConfig{NavTimeoutMs: 1000},
		Playback: config.PlaybackConfig{
			MaxWaitMs:      10,
			ResolveShortMs: 10,
			ResolveLongMs:  10,
		},
		Capture: config.CaptureConfig{CorrelationWindowMs: 2000},
	}
	return NewManager(&fakeDriver{}, cfg, macros, zerolog.Nop())
}

func TestRecordingLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.StartRecording(ctx, "smoke", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Recording(s.ID); err != nil {
		t.Fatalf("session not registered: %v", err)
	}

	macro, err := m.StopRecording(ctx, s.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if macro.Name != "smoke" {
		t.Fatalf("macro name = %q", macro.Name)
	}

	if _, err := m.Recording(s.ID); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("stopped session still registered: %v", err)
	}
	entries, err := m.Macros().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != macro.ID {
		t.Fatalf("macro not persisted: %+v", entries)
	}
}

func TestStopRecordingWithoutPersist(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.StartRecording(ctx, "discard", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.StopRecording(ctx, s.ID, false); err != nil {
		t.Fatal(err)
	}

	entries, err := m.Macros().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("discarded macro was persisted: %+v", entries)
	}
}

func TestPlaybackLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	macro := &models.Macro{
		Name: "replay",
		URL:  "https://example.com",
		Actions: []models.MacroAction{
			{SequenceID: 1, OffsetMs: 0, Kind: models.ActionPageLoad},
		},
	}
	if err := m.Macros().Save(macro); err != nil {
		t.Fatal(err)
	}

	s, err := m.StartPlayback(ctx, macro.ID)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		summary, err := m.Summary(s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if summary != nil {
			if summary.State != models.PlaybackCompleted {
				t.Fatalf("state = %s, want completed", summary.State)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("summary never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlaybackUnknownMacro(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.StartPlayback(context.Background(), "missing"); !errors.Is(err, models.ErrMacroNotFound) {
		t.Fatalf("got %v, want ErrMacroNotFound", err)
	}
	if _, err := m.Playback("missing"); !errors.Is(err, models.ErrPlaybackNotFound) {
		t.Fatalf("got %v, want ErrPlaybackNotFound", err)
	}
}

func TestStopAllClearsRegistries(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.StartRecording(ctx, "one", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}

	macro := &models.Macro{
		Name: "replay",
		URL:  "https://example.com",
		Actions: []models.MacroAction{
			{SequenceID: 1, OffsetMs: 0, Kind: models.ActionPageLoad},
		},
	}
	if err := m.Macros().Save(macro); err != nil {
		t.Fatal(err)
	}
	play, err := m.StartPlayback(ctx, macro.ID)
	if err != nil {
		t.Fatal(err)
	}
	<-play.Done()

	m.StopAll(ctx)

	if _, err := m.Recording(rec.ID); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("recording survived StopAll: %v", err)
	}
	if _, err := m.Playback(play.ID); !errors.Is(err, models.ErrPlaybackNotFound) {
		t.Fatalf("playback survived StopAll: %v", err)
	}
	if _, err := m.Summary(play.ID); !errors.Is(err, models.ErrPlaybackNotFound) {
		t.Fatalf("summary survived StopAll: %v", err)
	}
}

func TestRunAuditWithExplicitInteractions(t *testing.T) {
	m := newTestManager(t)

	interactions := []models.CatalogInteraction{
		{Selector: "#custom-target", Description: "Custom target"},
	}
	report, err := m.RunInteractionAudit(context.Background(), "https://example.com", "DEFAULT", interactions)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Interactions) != 1 {
		t.Fatalf("got %d interactions, want 1", len(report.Interactions))
	}
	got := report.Interactions[0]
	if got.Selector != "#custom-target" || got.Description != "Custom target" {
		t.Fatalf("interaction not passed through: %+v", got)
	}
	if got.Success {
		t.Fatalf("target absent from the page, should not succeed: %+v", got)
	}
}
