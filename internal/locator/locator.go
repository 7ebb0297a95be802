package locator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slotheather55/webspark-sub000/internal/models"
)

// Event is one action reported by the in-page recorder, before the
// recording session assigns sequence numbers and offsets.
type Event struct {
	Kind        string                `json:"kind"`
	Selector    string                `json:"selector"`
	Text        string                `json:"text"`
	Coordinates *models.Coordinates   `json:"coordinates"`
	Bundle      *models.LocatorBundle `json:"bundle"`
	TimestampMs int64                 `json:"timestamp"`
	URL         string                `json:"url"`
}

// DecodeMessage parses a console line from a recorded page. Lines without
// the recorder prefix are ignored. A malformed payload after the prefix is
// an error so the session can log it instead of silently dropping input.
func DecodeMessage(msg string) (*Event, error) {
	if !strings.HasPrefix(msg, MessagePrefix) {
		return nil, nil
	}
	payload := strings.TrimPrefix(msg, MessagePrefix)
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("decode recorder event: %w", err)
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("decode recorder event: missing kind")
	}
	return &ev, nil
}

// Describe renders a human-readable label for an action, preferring the
// element's accessible name over its selector.
func Describe(kind models.ActionKind, selector string, bundle *models.LocatorBundle, text string) string {
	target := selector
	if bundle != nil && bundle.Name != "" {
		target = fmt.Sprintf("%q", bundle.Name)
	}
	switch kind {
	case models.ActionClick:
		return "Click " + target
	case models.ActionType:
		return fmt.Sprintf("Type %q into %s", text, target)
	case models.ActionScroll:
		return "Scroll page"
	case models.ActionHover:
		return "Hover over " + target
	case models.ActionNavigate:
		return "Navigate to " + text
	case models.ActionPageLoad:
		return "Page loaded: " + text
	case models.ActionWait:
		return "Wait"
	default:
		return string(kind) + " " + target
	}
}
