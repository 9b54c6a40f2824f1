package enforcement

import (
	"time"

	"imobportal_backend/internal/health/domain"
)

// Suspension scopes, matching the audit event scoping.
const (
	ScopeLeads   = "leads"
	ScopeRoletao = "roletao"
)

// SuspensionResult is the outcome of overlaying one stored suspension on an
// enforcement decision.
type SuspensionResult struct {
	// Value is the resulting toggle value after the overlay.
	Value bool
	// Active reports whether a future suspension forced the toggle off.
	Active bool
	// Cleared reports that a stored suspension was found expired and should
	// be removed from the state record (lazy garbage collection).
	Cleared bool
	// Until is the still-active expiry, nil when none.
	Until *time.Time
}

// ApplySuspension overlays a stored suspension boundary on a toggle value,
// strictly after enforcement ran. A boundary not strictly in the future is
// expired: it is cleared on read and the enforced value stands. An active
// boundary forces the toggle off unconditionally and appends — never
// replaces — a reason on the toggle's enforcement state.
func ApplySuspension(now time.Time, until *time.Time, value bool, st *State) SuspensionResult {
	if until == nil {
		return SuspensionResult{Value: value}
	}

	if !until.After(now) {
		return SuspensionResult{Value: value, Cleared: true}
	}

	if st != nil {
		st.Reasons = append(st.Reasons, domain.SuspensionReason(*until))
	}

	return SuspensionResult{Value: false, Active: true, Until: until}
}
