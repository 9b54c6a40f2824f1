// Package enforcement decides the target value of the per-user automation
// toggles from health and performance signals, and layers temporary manual
// suspensions on top of those decisions.
package enforcement

import (
	"imobportal_backend/internal/health/domain"
)

// Toggle ids. These key the persisted enforcement map and the UI descriptors.
const (
	ToggleReceiveLeads = "auto-receive-leads"
	ToggleRoletaoClaim = "roletao-auto-claim"
)

// MinRoletaoSample is the minimum 7-day sample size — for both the user's
// claims and the house benchmark — required before performance enforcement
// may touch the roletão toggle.
const MinRoletaoSample = 5

// State is the persisted outcome of one enforcement decision for one toggle.
// TargetValue is nil when the decision did not produce a target (unenforced).
type State struct {
	Enforced    bool            `json:"enforced"`
	TargetValue *bool           `json:"targetValue"`
	Reasons     []domain.Reason `json:"reasons"`
}

// Input carries everything the controller needs for one user's evaluation.
type Input struct {
	AutoEnforceHealthLeads bool
	AutoEnforceRoletao     bool

	CriticalLeads      int
	CriticalProperties int
	CriticalTasks      int

	UserClaims7d   int
	UserConvRate7d float64
	Benchmark      domain.Benchmark
}

// Evaluate runs both toggle decisions and returns the enforcement states
// keyed by toggle id.
//
// When auto-enforcement of the leads toggle is off, no record is produced
// for it and the toggle keeps its manually-set value. The roletão toggle
// always records its decision, including the explicit unenforced states.
func Evaluate(in Input) map[string]State {
	states := make(map[string]State, 2)

	if in.AutoEnforceHealthLeads {
		states[ToggleReceiveLeads] = evaluateReceiveLeads(in)
	}

	if in.AutoEnforceRoletao {
		states[ToggleRoletaoClaim] = evaluateRoletaoClaim(in)
	} else {
		states[ToggleRoletaoClaim] = State{
			Enforced:    false,
			TargetValue: nil,
			Reasons:     []domain.Reason{domain.NotEnforcedReason()},
		}
	}

	return states
}

func evaluateReceiveLeads(in Input) State {
	hasCritical := in.CriticalLeads > 0 || in.CriticalProperties > 0 || in.CriticalTasks > 0
	target := !hasCritical

	var reasons []domain.Reason
	if in.CriticalLeads > 0 {
		reasons = append(reasons, domain.CriticalLeadsReason(in.CriticalLeads))
	}
	if in.CriticalProperties > 0 {
		reasons = append(reasons, domain.CriticalPropertiesReason(in.CriticalProperties))
	}
	if in.CriticalTasks > 0 {
		reasons = append(reasons, domain.CriticalTasksReason(in.CriticalTasks))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, domain.NoCriticalAlertsReason())
	}

	return State{Enforced: true, TargetValue: &target, Reasons: reasons}
}

func evaluateRoletaoClaim(in Input) State {
	if in.UserClaims7d < MinRoletaoSample || in.Benchmark.TotalLeads < MinRoletaoSample {
		return State{
			Enforced:    false,
			TargetValue: nil,
			Reasons: []domain.Reason{
				domain.InsufficientSampleReason(in.UserClaims7d, in.Benchmark.TotalLeads, MinRoletaoSample),
			},
		}
	}

	target := in.UserConvRate7d >= in.Benchmark.AverageConvRate
	return State{
		Enforced:    true,
		TargetValue: &target,
		Reasons: []domain.Reason{
			domain.ConvRateComparisonReason(in.UserConvRate7d, in.Benchmark.AverageConvRate),
		},
	}
}
