package enforcement

import (
	"testing"

	"imobportal_backend/internal/health/domain"
)

func hasReasonCode(reasons []domain.Reason, code string) bool {
	for _, r := range reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestEvaluateReceiveLeadsClean(t *testing.T) {
	states := Evaluate(Input{
		AutoEnforceHealthLeads: true,
		AutoEnforceRoletao:     true,
	})

	st, ok := states[ToggleReceiveLeads]
	if !ok {
		t.Fatal("expected a leads toggle record when enforcement is on")
	}
	if !st.Enforced {
		t.Error("expected enforced")
	}
	if st.TargetValue == nil || !*st.TargetValue {
		t.Error("clean health picture should target the toggle on")
	}
	if !hasReasonCode(st.Reasons, domain.ReasonNoCriticalAlerts) {
		t.Errorf("reasons = %v, want the no-critical-alerts reason", st.Reasons)
	}
}

func TestEvaluateReceiveLeadsCritical(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		wantCode string
	}{
		{"critical leads", Input{AutoEnforceHealthLeads: true, CriticalLeads: 2}, domain.ReasonCriticalLeads},
		{"critical properties", Input{AutoEnforceHealthLeads: true, CriticalProperties: 1}, domain.ReasonCriticalProperties},
		{"critical tasks", Input{AutoEnforceHealthLeads: true, CriticalTasks: 3}, domain.ReasonCriticalTasks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Evaluate(tt.in)[ToggleReceiveLeads]
			if !st.Enforced {
				t.Error("expected enforced")
			}
			if st.TargetValue == nil || *st.TargetValue {
				t.Error("critical alert should target the toggle off")
			}
			if !hasReasonCode(st.Reasons, tt.wantCode) {
				t.Errorf("reasons = %v, want code %q", st.Reasons, tt.wantCode)
			}
		})
	}
}

func TestEvaluateReceiveLeadsAllCriticalReasonsListed(t *testing.T) {
	st := Evaluate(Input{
		AutoEnforceHealthLeads: true,
		CriticalLeads:          1,
		CriticalProperties:     2,
		CriticalTasks:          3,
	})[ToggleReceiveLeads]

	if len(st.Reasons) != 3 {
		t.Errorf("got %d reasons, want one per critical dimension", len(st.Reasons))
	}
}

func TestEvaluateReceiveLeadsNotRecordedWhenUnenforced(t *testing.T) {
	states := Evaluate(Input{
		AutoEnforceHealthLeads: false,
		AutoEnforceRoletao:     true,
		CriticalLeads:          5,
	})

	if _, ok := states[ToggleReceiveLeads]; ok {
		t.Error("expected no leads toggle record when its enforcement flag is off")
	}
}

func TestEvaluateRoletaoUnenforced(t *testing.T) {
	st := Evaluate(Input{AutoEnforceRoletao: false})[ToggleRoletaoClaim]

	if st.Enforced {
		t.Error("expected unenforced")
	}
	if st.TargetValue != nil {
		t.Error("expected nil target on the unenforced record")
	}
	if !hasReasonCode(st.Reasons, domain.ReasonNotEnforced) {
		t.Errorf("reasons = %v, want the not-enforced reason", st.Reasons)
	}
}

func TestEvaluateRoletaoInsufficientSample(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{
			"user sample short",
			Input{AutoEnforceRoletao: true, UserClaims7d: 4, Benchmark: domain.Benchmark{TotalLeads: 100}},
		},
		{
			"house sample short",
			Input{AutoEnforceRoletao: true, UserClaims7d: 10, Benchmark: domain.Benchmark{TotalLeads: 4}},
		},
		{
			"zero claims",
			Input{AutoEnforceRoletao: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Evaluate(tt.in)[ToggleRoletaoClaim]
			if st.Enforced {
				t.Error("expected unenforced below the minimum sample")
			}
			if st.TargetValue != nil {
				t.Error("expected nil target below the minimum sample")
			}
			if !hasReasonCode(st.Reasons, domain.ReasonInsufficientSample) {
				t.Errorf("reasons = %v, want the insufficient-sample reason", st.Reasons)
			}
		})
	}
}

func TestEvaluateRoletaoPerformance(t *testing.T) {
	tests := []struct {
		name       string
		userRate   float64
		houseRate  float64
		wantTarget bool
		wantCode   string
	}{
		{"above benchmark", 0.4, 0.3, true, domain.ReasonConvRateAtOrAbove},
		{"exactly at benchmark", 0.3, 0.3, true, domain.ReasonConvRateAtOrAbove},
		{"below benchmark", 0.2, 0.3, false, domain.ReasonConvRateBelow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Evaluate(Input{
				AutoEnforceRoletao: true,
				UserClaims7d:       MinRoletaoSample,
				UserConvRate7d:     tt.userRate,
				Benchmark:          domain.Benchmark{TotalLeads: MinRoletaoSample, AverageConvRate: tt.houseRate},
			})[ToggleRoletaoClaim]

			if !st.Enforced {
				t.Fatal("expected enforced at the minimum sample")
			}
			if st.TargetValue == nil || *st.TargetValue != tt.wantTarget {
				t.Errorf("target = %v, want %v", st.TargetValue, tt.wantTarget)
			}
			if !hasReasonCode(st.Reasons, tt.wantCode) {
				t.Errorf("reasons = %v, want code %q", st.Reasons, tt.wantCode)
			}
		})
	}
}
