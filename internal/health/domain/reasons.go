package domain

import (
	"fmt"
	"time"
)

// Reason pairs a stable machine-checkable code with user-facing pt-BR text.
// Automation and tests key off Code; dashboards render Message.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reason codes.
const (
	ReasonCriticalLeads      = "critical_leads"
	ReasonCriticalProperties = "critical_properties"
	ReasonCriticalTasks      = "critical_tasks"
	ReasonNoCriticalAlerts   = "no_critical_alerts"
	ReasonNotEnforced        = "not_enforced"
	ReasonInsufficientSample = "insufficient_sample"
	ReasonConvRateAtOrAbove  = "conv_rate_at_or_above_benchmark"
	ReasonConvRateBelow      = "conv_rate_below_benchmark"
	ReasonSuspensionActive   = "temporary_suspension"
)

// suspensionTimeLayout renders expiries in the pt-BR short date+time style.
const suspensionTimeLayout = "02/01/2006 15:04"

// CriticalLeadsReason describes leads past the critical boundary.
func CriticalLeadsReason(count int) Reason {
	return Reason{
		Code:    ReasonCriticalLeads,
		Message: fmt.Sprintf("%d lead(s) críticos sem contato humano há 31 dias ou mais", count),
	}
}

// CriticalPropertiesReason describes stale properties.
func CriticalPropertiesReason(count int) Reason {
	return Reason{
		Code:    ReasonCriticalProperties,
		Message: fmt.Sprintf("%d imóvel(is) sem atualização relevante há 31 dias ou mais", count),
	}
}

// CriticalTasksReason describes late follow-up tasks.
func CriticalTasksReason(count int) Reason {
	return Reason{
		Code:    ReasonCriticalTasks,
		Message: fmt.Sprintf("%d tarefa(s) de follow-up atrasadas", count),
	}
}

// NoCriticalAlertsReason is recorded when the health picture is clean.
func NoCriticalAlertsReason() Reason {
	return Reason{
		Code:    ReasonNoCriticalAlerts,
		Message: "Sem alertas críticos de saúde",
	}
}

// NotEnforcedReason is recorded when automatic enforcement is disabled for
// the toggle.
func NotEnforcedReason() Reason {
	return Reason{
		Code:    ReasonNotEnforced,
		Message: "Enforcement automático desativado para este corretor",
	}
}

// InsufficientSampleReason is recorded when either the user's or the house
// sample is below the minimum required for a fair comparison.
func InsufficientSampleReason(userClaims, houseLeads, minimum int) Reason {
	return Reason{
		Code: ReasonInsufficientSample,
		Message: fmt.Sprintf(
			"Amostra insuficiente para comparação: %d claim(s) do corretor e %d lead(s) da casa nos últimos 7 dias (mínimo %d)",
			userClaims, houseLeads, minimum,
		),
	}
}

// ConvRateComparisonReason states both percentages and the direction of the
// comparison with the house benchmark.
func ConvRateComparisonReason(userRate, houseRate float64) Reason {
	if userRate >= houseRate {
		return Reason{
			Code: ReasonConvRateAtOrAbove,
			Message: fmt.Sprintf(
				"Conversão de %.1f%% igual ou acima da média da casa (%.1f%%)",
				userRate*100, houseRate*100,
			),
		}
	}
	return Reason{
		Code: ReasonConvRateBelow,
		Message: fmt.Sprintf(
			"Conversão de %.1f%% abaixo da média da casa (%.1f%%)",
			userRate*100, houseRate*100,
		),
	}
}

// SuspensionReason describes an active manual suspension and its expiry.
func SuspensionReason(until time.Time) Reason {
	return Reason{
		Code:    ReasonSuspensionActive,
		Message: fmt.Sprintf("Suspensão manual ativa até %s", until.Format(suspensionTimeLayout)),
	}
}
