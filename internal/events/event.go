// Package events defines the domain events of the application and re-exports
// the platform event bus for convenience.
package events

import (
	platformevents "imobportal_backend/platform/events"

	"imobportal_backend/internal/health/domain"
)

// AutomationToggleChanged fires when a recompute flips one of a user's
// automation toggles. The notifier subscribes to it.
type AutomationToggleChanged struct {
	platformevents.BaseEvent
	UserID   string
	ToggleID string
	From     bool
	To       bool
	Enforced bool
	Reasons  []domain.Reason
}

// EventName returns the unique event identifier.
func (AutomationToggleChanged) EventName() string { return "health.automation_toggle_changed" }

// SnapshotRecomputed fires after every persisted recompute.
type SnapshotRecomputed struct {
	platformevents.BaseEvent
	UserID  string
	Trigger string
	Changed bool
}

// EventName returns the unique event identifier.
func (SnapshotRecomputed) EventName() string { return "health.snapshot_recomputed" }
