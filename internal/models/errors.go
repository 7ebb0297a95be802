package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionInit marks a failure that is fatal to the session being
	// created but must not affect the registry or other sessions.
	ErrSessionInit = errors.New("session initialization failed")

	ErrSessionNotFound  = errors.New("session not found")
	ErrPlaybackNotFound = errors.New("playback session not found")
	ErrMacroNotFound    = errors.New("macro not found")
	ErrSessionClosed    = errors.New("session is no longer active")
)

// StrategyAttempt records one resolution strategy that was tried and why it
// did not produce an element.
type StrategyAttempt struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// ElementNotFoundError is returned when every resolution strategy has been
// exhausted. Recoverable: the caller decides whether to skip or abort.
type ElementNotFoundError struct {
	Selector string
	Attempts []StrategyAttempt
}

func (e *ElementNotFoundError) Error() string {
	tried := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		tried[i] = a.Strategy
	}
	return fmt.Sprintf("element not found for %q after strategies [%s]",
		e.Selector, strings.Join(tried, ", "))
}

// ActionExecutionError means the element was located but the operation on it
// failed, e.g. a click intercepted by a late overlay.
type ActionExecutionError struct {
	Kind     ActionKind
	Selector string
	Err      error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("%s on %q failed: %v", e.Kind, e.Selector, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// NavigationError wraps a failed page navigation, after the looser-wait
// retry has also failed.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
