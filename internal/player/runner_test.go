package player

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
)

func TestRunnerProbesCatalog(t *testing.T) {
	page := newFakePage()
	page.addElement("div.book-shelf-add")
	page.addElement("a.insight")
	page.drainFn = func() string {
		return fmt.Sprintf(`[{"functionName":"utag.link","payload":{"tealium_event":"cart_add"},"timestamp":%d,"url":"https://example.com/book"}]`,
			time.Now().UnixMilli())
	}

	interactions := []models.CatalogInteraction{
		{Selector: "div.book-shelf-add", Description: "Add to Bookshelf"},
		{Selector: "a.insight", Description: "Look Inside"},
	}
	runner := NewRunner(&fakeDriver{page: page}, testConfig(), zerolog.Nop())
	report, err := runner.Run(context.Background(), "https://example.com/book", "Product Detail Page", interactions)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Interactions) != 2 {
		t.Fatalf("got %d interaction outcomes, want 2", len(report.Interactions))
	}
	for _, outcome := range report.Interactions {
		if !outcome.Success {
			t.Errorf("%s: not clicked: %s", outcome.Description, outcome.Error)
			continue
		}
		if len(outcome.Events) == 0 {
			t.Errorf("%s: no events attributed", outcome.Description)
			continue
		}
		ev := outcome.Events[0]
		if ev.FunctionName != "utag.link" {
			t.Errorf("%s: event = %q", outcome.Description, ev.FunctionName)
		}
		if ev.DelayMs < 0 || ev.DelayMs > 2000 {
			t.Errorf("%s: delay %dms outside window", outcome.Description, ev.DelayMs)
		}
	}
	// One load up front plus a reload before the second probe.
	if len(page.gotoURLs) != 2 {
		t.Errorf("got %d page loads, want 2", len(page.gotoURLs))
	}
}

func TestRunnerReportsMissingTarget(t *testing.T) {
	page := newFakePage()

	interactions := []models.CatalogInteraction{
		{Selector: "#never-there", Description: "Ghost Button"},
	}
	runner := NewRunner(&fakeDriver{page: page}, testConfig(), zerolog.Nop())
	report, err := runner.Run(context.Background(), "https://example.com", "DEFAULT", interactions)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Interactions) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(report.Interactions))
	}
	outcome := report.Interactions[0]
	if outcome.Success {
		t.Fatal("missing target should not report success")
	}
	if outcome.Error == "" {
		t.Fatal("missing target should carry the resolution error")
	}
}
