// Package transport defines the request and response shapes of the health
// engine API.
package transport

import (
	"time"

	"imobportal_backend/internal/health/domain"
	"imobportal_backend/internal/health/enforcement"
)

// Pill variants.
const (
	PillSuccess = "success"
	PillWarning = "warning"
	PillDanger  = "danger"
)

// RoletaoBanner is the headline pair of one metrics window.
type RoletaoBanner struct {
	Claimed       int `json:"claimed"`
	AwaitingToday int `json:"awaitingToday"`
}

// RoletaoHealthMetrics are the KPIs of one trailing window.
type RoletaoHealthMetrics struct {
	Banner              RoletaoBanner `json:"banner"`
	AvgAdvanceTime      int           `json:"avgAdvanceTime"`
	ConvRate            float64       `json:"convRate"`
	ActiveParticipation float64       `json:"activeParticipation"`
	ClaimsPerDay        float64       `json:"claimsPerDay"`
}

// RoletaoKPIs group the per-window metrics.
type RoletaoKPIs struct {
	DefaultPeriod string                          `json:"defaultPeriod"`
	Periods       map[string]RoletaoHealthMetrics `json:"periods"`
}

// AutomationToggle is a UI toggle descriptor with its current value.
type AutomationToggle struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Href        string `json:"href"`
	Enabled     bool   `json:"enabled"`
}

// AutomationTogglePill is the status badge derived from enforcement state.
type AutomationTogglePill struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Variant string `json:"variant"`
	Reason  string `json:"reason"`
}

// UserAutomationsSnapshot is the automation section of the health snapshot.
type UserAutomationsSnapshot struct {
	Toggles []AutomationToggle     `json:"toggles"`
	Pills   []AutomationTogglePill `json:"pills"`

	AutoEnforceHealthLeads bool `json:"autoEnforceHealthLeads"`
	AutoEnforceRoletao     bool `json:"autoEnforceRoletao"`
	RoletaoEnabled         bool `json:"roletaoEnabled"`

	SuspendLeadsUntil   *time.Time `json:"suspendLeadsUntil"`
	SuspendRoletaoUntil *time.Time `json:"suspendRoletaoUntil"`

	EnforcementReasons map[string]enforcement.State `json:"enforcementReasons"`
}

// UserHealthSnapshot is the full computed health picture of one user.
type UserHealthSnapshot struct {
	UserID    string    `json:"userId"`
	UpdatedAt time.Time `json:"updatedAt"`

	Leads   []domain.Segment `json:"leads"`
	Imoveis []domain.Segment `json:"imoveis"`
	Tarefas []domain.Segment `json:"tarefas"`

	Roletao     RoletaoKPIs             `json:"roletao"`
	Automations UserAutomationsSnapshot `json:"automations"`

	NextCheckpointAt *time.Time `json:"nextCheckpointAt"`
	CheckpointReason *string    `json:"checkpointReason"`
}

// SaveAutoFlagsRequest updates the enforcement flags and, where allowed, the
// manual toggle values. Omitted fields are left untouched.
type SaveAutoFlagsRequest struct {
	AutoEnforceHealthLeads *bool `json:"autoEnforceHealthLeads"`
	AutoEnforceRoletao     *bool `json:"autoEnforceRoletao"`
	CanReceiveNewLeads     *bool `json:"canReceiveNewLeads"`
	CanClaimRoletao        *bool `json:"canClaimRoletao"`
	RoletaoEnabled         *bool `json:"roletaoEnabled"`
}

// SaveSuspensionRequest sets or clears a temporary suspension. A nil Until
// clears the suspension for the scope.
type SaveSuspensionRequest struct {
	Scope string     `json:"scope" validate:"required,oneof=leads roletao"`
	Until *time.Time `json:"until"`
}

// SaveCheckpointRequest schedules (or clears) the next health checkpoint.
type SaveCheckpointRequest struct {
	At     *time.Time `json:"at"`
	Reason *string    `json:"reason" validate:"omitempty,max=400"`
}
