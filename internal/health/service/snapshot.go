package service

import (
	"time"

	"imobportal_backend/internal/health/domain"
	"imobportal_backend/internal/health/enforcement"
	"imobportal_backend/internal/health/repository"
	"imobportal_backend/internal/health/transport"
)

type assembleInput struct {
	userID string
	now    time.Time
	state  repository.UserState

	leadSegments     []domain.Segment
	propertySegments []domain.Segment
	taskSegments     []domain.Segment

	windows      map[string]domain.WindowMetrics
	enforcements map[string]enforcement.State

	canReceiveLeads bool
	canClaimRoletao bool

	leadsSuspension enforcement.SuspensionResult
	roletaoSusp     enforcement.SuspensionResult

	checkpointDue bool
}

func (s *Service) assembleSnapshot(in assembleInput) transport.UserHealthSnapshot {
	periods := make(map[string]transport.RoletaoHealthMetrics, len(in.windows))
	for key, w := range in.windows {
		periods[key] = transport.RoletaoHealthMetrics{
			Banner: transport.RoletaoBanner{
				Claimed:       w.Claimed,
				AwaitingToday: w.AwaitingToday,
			},
			AvgAdvanceTime:      w.AvgAdvanceTimeMin,
			ConvRate:            w.ConvRate,
			ActiveParticipation: w.ActiveParticipation,
			ClaimsPerDay:        w.ClaimsPerDay,
		}
	}

	toggles := []transport.AutomationToggle{
		{
			ID:          enforcement.ToggleReceiveLeads,
			Title:       "Receber novos leads",
			Description: "Distribuição automática de novos leads para este corretor",
			Href:        "/automacoes/leads",
			Enabled:     in.canReceiveLeads,
		},
		{
			ID:          enforcement.ToggleRoletaoClaim,
			Title:       "Participar do roletão",
			Description: "Claim automático de leads distribuídos pelo roletão",
			Href:        "/automacoes/roletao",
			Enabled:     in.canClaimRoletao,
		},
	}

	pills := []transport.AutomationTogglePill{
		s.leadsPill(in),
		s.roletaoPill(in),
	}

	suspendLeads := in.state.SuspendLeadsUntil
	if in.leadsSuspension.Cleared {
		suspendLeads = nil
	}
	suspendRoletao := in.state.SuspendRoletaoUntil
	if in.roletaoSusp.Cleared {
		suspendRoletao = nil
	}

	nextCheckpoint := in.state.NextCheckpointAt
	checkpointReason := in.state.CheckpointReason
	if in.checkpointDue {
		nextCheckpoint = nil
		checkpointReason = nil
	}

	return transport.UserHealthSnapshot{
		UserID:    in.userID,
		UpdatedAt: in.now,
		Leads:     in.leadSegments,
		Imoveis:   in.propertySegments,
		Tarefas:   in.taskSegments,
		Roletao: transport.RoletaoKPIs{
			DefaultPeriod: "7d",
			Periods:       periods,
		},
		Automations: transport.UserAutomationsSnapshot{
			Toggles:                toggles,
			Pills:                  pills,
			AutoEnforceHealthLeads: in.state.AutoEnforceHealthLeads,
			AutoEnforceRoletao:     in.state.AutoEnforceRoletao,
			RoletaoEnabled:         in.state.RoletaoEnabled,
			SuspendLeadsUntil:      suspendLeads,
			SuspendRoletaoUntil:    suspendRoletao,
			EnforcementReasons:     in.enforcements,
		},
		NextCheckpointAt: nextCheckpoint,
		CheckpointReason: checkpointReason,
	}
}

// leadsPill derives the lead toggle status badge. A block forced by the
// system (enforcement or suspension) is a warning; a manual opt-out is
// stronger and renders as danger.
func (s *Service) leadsPill(in assembleInput) transport.AutomationTogglePill {
	pill := transport.AutomationTogglePill{ID: enforcement.ToggleReceiveLeads}
	st := in.enforcements[enforcement.ToggleReceiveLeads]

	if in.canReceiveLeads {
		pill.Message = "Liberado"
		pill.Variant = transport.PillSuccess
		pill.Reason = firstReason(st.Reasons)
		return pill
	}

	pill.Message = "Bloqueado"
	if in.leadsSuspension.Active || (st.Enforced && st.TargetValue != nil && !*st.TargetValue) {
		pill.Variant = transport.PillWarning
	} else {
		pill.Variant = transport.PillDanger
	}
	pill.Reason = firstReason(st.Reasons)
	return pill
}

// roletaoPill derives the roletão status badge. When the roletão feature is
// off for the user the toggle is moot and the badge reads unavailable.
func (s *Service) roletaoPill(in assembleInput) transport.AutomationTogglePill {
	pill := transport.AutomationTogglePill{ID: enforcement.ToggleRoletaoClaim}
	st := in.enforcements[enforcement.ToggleRoletaoClaim]

	if !in.state.RoletaoEnabled {
		pill.Message = "Indisponível"
		pill.Variant = transport.PillWarning
		pill.Reason = "Roletão desativado para este corretor"
		return pill
	}

	if in.canClaimRoletao {
		pill.Message = "Participando"
		pill.Variant = transport.PillSuccess
		pill.Reason = firstReason(st.Reasons)
		return pill
	}

	pill.Message = "Bloqueado"
	if in.roletaoSusp.Active || (st.Enforced && st.TargetValue != nil && !*st.TargetValue) {
		pill.Variant = transport.PillWarning
	} else {
		pill.Variant = transport.PillDanger
	}
	pill.Reason = firstReason(st.Reasons)
	return pill
}

func firstReason(reasons []domain.Reason) string {
	if len(reasons) == 0 {
		return ""
	}
	return reasons[0].Message
}
