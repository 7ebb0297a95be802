package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionKind identifies the interaction a MacroAction reproduces.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionScroll   ActionKind = "scroll"
	ActionHover    ActionKind = "hover"
	ActionNavigate ActionKind = "navigate"
	ActionPageLoad ActionKind = "pageload"
	ActionWait     ActionKind = "wait"
)

type Coordinates struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	PageX float64 `json:"pageX"`
	PageY float64 `json:"pageY"`
}

// AncestorRef is one entry of the captured ancestor chain, used to scope
// re-resolution when the primary selector no longer matches.
type AncestorRef struct {
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// LocatorBundle carries the alternate identification material captured
// alongside the primary selector. Every field is best-effort except Tag
// and XPath, which the page script always fills in.
type LocatorBundle struct {
	Role      string        `json:"role,omitempty"`
	Name      string        `json:"name,omitempty"`
	Href      string        `json:"href,omitempty"`
	Tag       string        `json:"tag"`
	ID        string        `json:"id,omitempty"`
	Classes   []string      `json:"classes,omitempty"`
	Text      string        `json:"text,omitempty"`
	XPath     string        `json:"xpath"`
	Ancestors []AncestorRef `json:"ancestors,omitempty"`
}

type MacroAction struct {
	SequenceID    int            `json:"sequenceId"`
	OffsetMs      int64          `json:"offsetMs"`
	Kind          ActionKind     `json:"kind"`
	Selector      string         `json:"selector"`
	Text          string         `json:"text,omitempty"`
	Coordinates   *Coordinates   `json:"coordinates,omitempty"`
	LocatorBundle *LocatorBundle `json:"locatorBundle,omitempty"`
	Description   string         `json:"description"`
}

// Macro is a named, ordered, persisted sequence of captured interactions
// against a specific page. Immutable once persisted.
type Macro struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	URL         string        `json:"url"`
	CreatedAt   time.Time     `json:"createdAt"`
	DurationMs  int64         `json:"durationMs"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Actions     []MacroAction `json:"actions"`
}

// Validate checks the ordering invariants: sequence ids are 1-based and
// strictly increasing by one, offsets never decrease.
func (m *Macro) Validate() error {
	var prev int64
	for i, a := range m.Actions {
		if a.SequenceID != i+1 {
			return fmt.Errorf("action %d: sequenceId %d, want %d", i, a.SequenceID, i+1)
		}
		if a.OffsetMs < prev {
			return fmt.Errorf("action %d: offsetMs %d decreases below %d", i, a.OffsetMs, prev)
		}
		prev = a.OffsetMs
	}
	return nil
}

func (m *Macro) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// TagEventRecord is one observed tracking signal: either an outbound request
// to a known tracking endpoint (URL set) or an intercepted vendor library
// call (FunctionName set).
type TagEventRecord struct {
	Timestamp    time.Time              `json:"timestamp"`
	URL          string                 `json:"url,omitempty"`
	FunctionName string                 `json:"functionName,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Initiator    string                 `json:"initiator,omitempty"`
}

// CorrelatedEvent is a TagEventRecord attributed to the interaction that
// triggered it. DelayMs is always within [0, correlation window].
type CorrelatedEvent struct {
	TagEventRecord
	TriggeringActionID int     `json:"triggeringActionId"`
	StrategyUsed       string  `json:"strategyUsed"`
	DelayMs            int64   `json:"delayMs"`
}

// ActionStatus classifies one replayed action's result.
type ActionStatus string

const (
	ActionOK      ActionStatus = "ok"
	ActionFailed  ActionStatus = "failed"
	ActionSkipped ActionStatus = "skipped"
)

// ActionOutcome is the per-action result emitted during playback.
type ActionOutcome struct {
	SequenceID  int               `json:"sequenceId"`
	Kind        ActionKind        `json:"kind"`
	Description string            `json:"description"`
	Status      ActionStatus      `json:"status"`
	Strategy    string            `json:"strategy,omitempty"`
	Error       string            `json:"error,omitempty"`
	DurationMs  int64             `json:"durationMs"`
	Events      []CorrelatedEvent `json:"events,omitempty"`
}

// PlaybackState is the playback session state machine.
type PlaybackState string

const (
	PlaybackIdle      PlaybackState = "idle"
	PlaybackRunning   PlaybackState = "running"
	PlaybackCompleted PlaybackState = "completed"
	PlaybackFailed    PlaybackState = "failed"
	PlaybackStopped   PlaybackState = "stopped"
)

// PlaybackSummary is the terminal report for one playback session.
type PlaybackSummary struct {
	PlaybackID string          `json:"playbackId"`
	MacroID    string          `json:"macroId"`
	MacroName  string          `json:"macroName"`
	State      PlaybackState   `json:"state"`
	Outcomes   []ActionOutcome `json:"outcomes"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// CatalogInteraction is one entry of a page-type interaction catalog.
type CatalogInteraction struct {
	Selector      string         `json:"selector"`
	LocatorBundle *LocatorBundle `json:"locatorBundle,omitempty"`
	Description   string         `json:"description"`
}

// InteractionOutcome reports one catalog interaction: whether the element
// was found and clicked, which strategy located it, and which tracking
// events were attributed to the click.
type InteractionOutcome struct {
	Selector     string            `json:"selector"`
	Description  string            `json:"description"`
	Success      bool              `json:"success"`
	Strategy     string            `json:"strategy,omitempty"`
	Error        string            `json:"error,omitempty"`
	Events       []CorrelatedEvent `json:"events,omitempty"`
	Unattributed []TagEventRecord  `json:"unattributed,omitempty"`
}
