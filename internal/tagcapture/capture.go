package tagcapture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/browser"
)

// Buffer accumulates tag events for one page from two feeds: browser
// network requests matched against the vendor table, and the injected
// page-side hook buffer. Entries are append-only between explicit Clear
// calls so nothing fires unobserved. Safe for concurrent use; network
// events arrive on the browser's event goroutine while drains run on the
// session goroutine.
type Buffer struct {
	logger zerolog.Logger

	mu      sync.Mutex
	entries []models.TagEventRecord
}

func NewBuffer(logger zerolog.Logger) *Buffer {
	return &Buffer{logger: logger.With().Str("component", "tagcapture").Logger()}
}

// AttachNetwork subscribes the buffer to the page's network feed. Only
// requests whose URL matches a known vendor are recorded.
func (b *Buffer) AttachNetwork(page browser.Page) {
	page.OnRequest(func(req browser.Request) {
		vendor, ok := MatchVendor(req.URL)
		if !ok {
			return
		}
		rec := models.TagEventRecord{
			Timestamp:    req.Timestamp,
			URL:          req.URL,
			FunctionName: "network:" + vendor.Name,
			Payload:      DecodePayload(req.PostData, req.MimeType, req.URL),
			Initiator:    req.Initiator,
		}
		b.mu.Lock()
		b.entries = append(b.entries, rec)
		b.mu.Unlock()
	})
}

// InstallPageHooks registers the monitor and network hook scripts to run
// on every new document the page loads.
func (b *Buffer) InstallPageHooks(ctx context.Context, page browser.Page) error {
	if err := page.AddInitScript(ctx, MonitorScript()); err != nil {
		return fmt.Errorf("install tag monitor: %w", err)
	}
	if err := page.AddInitScript(ctx, NetworkHookScript()); err != nil {
		return fmt.Errorf("install network hooks: %w", err)
	}
	return nil
}

type pageEvent struct {
	FunctionName string      `json:"functionName"`
	Payload      interface{} `json:"payload"`
	Timestamp    int64       `json:"timestamp"`
	URL          string      `json:"url"`
}

// DrainPage moves accumulated page-side hook events into the buffer. The
// page buffer is cleared atomically by the drain expression.
func (b *Buffer) DrainPage(ctx context.Context, page browser.Page) error {
	var raw string
	if err := page.Evaluate(ctx, drainScript, &raw); err != nil {
		return fmt.Errorf("drain page events: %w", err)
	}
	var events []pageEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return fmt.Errorf("decode page events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]models.TagEventRecord, 0, len(events))
	for _, ev := range events {
		payload, ok := ev.Payload.(map[string]interface{})
		if !ok && ev.Payload != nil {
			payload = map[string]interface{}{"value": ev.Payload}
		}
		records = append(records, models.TagEventRecord{
			Timestamp:    time.UnixMilli(ev.Timestamp),
			URL:          ev.URL,
			FunctionName: ev.FunctionName,
			Payload:      payload,
			Initiator:    "page",
		})
	}

	b.mu.Lock()
	b.entries = append(b.entries, records...)
	b.mu.Unlock()
	b.logger.Debug().Int("count", len(records)).Msg("drained page events")
	return nil
}

// Snapshot returns a copy of the buffered events in arrival order.
func (b *Buffer) Snapshot() []models.TagEventRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.TagEventRecord, len(b.entries))
	copy(out, b.entries)
	return out
}

// Clear empties the buffer. Called before each probed interaction so the
// next snapshot holds only events that followed it.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = b.entries[:0]
	b.mu.Unlock()
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// VendorObjectHit is one vendor global found installed on a page.
type VendorObjectHit struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Object   string `json:"object"`
}

// DetectVendorObjects probes the page for known vendor globals.
func (b *Buffer) DetectVendorObjects(ctx context.Context, page browser.Page) ([]VendorObjectHit, error) {
	var hits []VendorObjectHit
	if err := page.Evaluate(ctx, DetectVendorObjectsScript(), &hits); err != nil {
		return nil, fmt.Errorf("detect vendor objects: %w", err)
	}
	return hits, nil
}

const scriptSrcScript = `
(function() {
	var srcs = [];
	var scripts = document.getElementsByTagName('script');
	for (var i = 0; i < scripts.length; i++) {
		if (scripts[i].src) srcs.push(scripts[i].src);
	}
	return srcs;
})()
`

// DetectScriptVendors scans the page's script tags for sources served from
// known vendor endpoints. Each vendor is reported once.
func (b *Buffer) DetectScriptVendors(ctx context.Context, page browser.Page) ([]string, error) {
	var srcs []string
	if err := page.Evaluate(ctx, scriptSrcScript, &srcs); err != nil {
		return nil, fmt.Errorf("scan script sources: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, src := range srcs {
		vendor, ok := MatchVendor(src)
		if !ok || seen[vendor.Name] {
			continue
		}
		seen[vendor.Name] = true
		names = append(names, vendor.Name)
	}
	return names, nil
}
