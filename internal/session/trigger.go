package session

import (
	"fmt"
	"time"
)

// Cause says how the UI loop continues after a cycle step.
type Cause int

const (
	// Continue: the cycle goes on with its next step.
	Continue Cause = iota
	// RestartNow: start the next cycle immediately.
	RestartNow
	// RestartAfterDelay: start the next cycle after Trigger.Delay.
	RestartAfterDelay
	// WaitForExternalEvent: sleep until a queued event or a user action.
	WaitForExternalEvent
)

// String returns the string representation of Cause.
func (c Cause) String() string {
	switch c {
	case Continue:
		return "continue"
	case RestartNow:
		return "restart-now"
	case RestartAfterDelay:
		return "restart-after-delay"
	case WaitForExternalEvent:
		return "wait-for-external-event"
	default:
		return "unknown"
	}
}

// Trigger is the typed reason the UI loop restarts.
type Trigger struct {
	Cause Cause
	Delay time.Duration
}

func (t Trigger) String() string {
	if t.Cause == RestartAfterDelay {
		return fmt.Sprintf("%s(%v)", t.Cause, t.Delay)
	}
	return t.Cause.String()
}

func proceed() Trigger { return Trigger{Cause: Continue} }

func restartNow() Trigger { return Trigger{Cause: RestartNow} }

func waitForEvent() Trigger { return Trigger{Cause: WaitForExternalEvent} }

func restartAfter(d time.Duration) Trigger {
	return Trigger{Cause: RestartAfterDelay, Delay: d}
}

// Result is the outcome of one cycle. View is nil when the cycle was cut
// short before rendering.
type Result struct {
	View    *View
	Trigger Trigger
}
