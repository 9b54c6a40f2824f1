package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"imobportal_backend/internal/events"
	"imobportal_backend/internal/health/domain"
	"imobportal_backend/internal/health/enforcement"
	"imobportal_backend/internal/health/repository"
	"imobportal_backend/internal/health/transport"
)

// recompute is the single recompute-and-persist cycle. Callers must hold the
// user's lock.
func (s *Service) recompute(ctx context.Context, userID, trigger string, actorUserID *string) (transport.UserHealthSnapshot, error) {
	started := time.Now()
	now := s.now()

	state, err := s.states.GetOrCreateState(ctx, userID)
	if err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	leads, err := s.records.ListLeads(ctx)
	if err != nil {
		return transport.UserHealthSnapshot{}, err
	}
	properties, err := s.records.ListProperties(ctx)
	if err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	leadSegments := s.segmenter.SegmentLeads(leads, userID, now)
	propertySegments := s.segmenter.SegmentProperties(properties, userID, now)
	taskSegments := s.segmenter.SegmentTasks(leads, userID, now)

	windows := make(map[string]domain.WindowMetrics, len(domain.MetricWindows))
	for _, days := range domain.MetricWindows {
		windows[windowKey(days)] = domain.ComputeWindow(leads, userID, days, now)
	}
	week := windows[windowKey(domain.BenchmarkWindowDays)]

	benchmark := domain.ComputeBenchmark(leads, now)

	enforcements := enforcement.Evaluate(enforcement.Input{
		AutoEnforceHealthLeads: state.AutoEnforceHealthLeads,
		AutoEnforceRoletao:     state.AutoEnforceRoletao,
		CriticalLeads:          domain.SegmentValue(leadSegments, domain.SegmentCritical),
		CriticalProperties:     domain.SegmentValue(propertySegments, domain.SegmentNeedsAdjustment),
		CriticalTasks:          domain.SegmentValue(taskSegments, domain.SegmentTasksLate),
		UserClaims7d:           week.Claimed,
		UserConvRate7d:         week.ConvRate,
		Benchmark:              benchmark,
	})

	// Enforcement only moves a toggle when it produced a target; otherwise
	// the last manually-set value stands.
	canReceiveLeads := state.CanReceiveNewLeads
	if st, ok := enforcements[enforcement.ToggleReceiveLeads]; ok && st.Enforced && st.TargetValue != nil {
		canReceiveLeads = *st.TargetValue
	}
	canClaimRoletao := state.CanClaimRoletao
	if st, ok := enforcements[enforcement.ToggleRoletaoClaim]; ok && st.Enforced && st.TargetValue != nil {
		canClaimRoletao = *st.TargetValue
	}

	// Suspension overlay, strictly after enforcement.
	canReceiveLeads, leadsSuspension := s.overlaySuspension(enforcements, enforcement.ToggleReceiveLeads, now, state.SuspendLeadsUntil, canReceiveLeads)
	canClaimRoletao, roletaoSuspension := s.overlaySuspension(enforcements, enforcement.ToggleRoletaoClaim, now, state.SuspendRoletaoUntil, canClaimRoletao)

	// A checkpoint whose instant has passed fires once and is cleared.
	checkpointDue := state.NextCheckpointAt != nil && !state.NextCheckpointAt.After(now)
	if checkpointDue && trigger == TriggerScheduledSweep {
		trigger = TriggerScheduledCheckpoint
	}

	snapshot := s.assembleSnapshot(assembleInput{
		userID:           userID,
		now:              now,
		state:            state,
		leadSegments:     leadSegments,
		propertySegments: propertySegments,
		taskSegments:     taskSegments,
		windows:          windows,
		enforcements:     enforcements,
		canReceiveLeads:  canReceiveLeads,
		canClaimRoletao:  canClaimRoletao,
		leadsSuspension:  leadsSuspension,
		roletaoSusp:      roletaoSuspension,
		checkpointDue:    checkpointDue,
	})

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	patch := repository.UserStatePatch{
		CanReceiveNewLeads:      &canReceiveLeads,
		CanClaimRoletao:         &canClaimRoletao,
		Enforcements:            enforcements,
		HealthSnapshot:          snapshotJSON,
		HealthSnapshotUpdatedAt: &now,
	}
	if leadsSuspension.Cleared {
		patch.SuspendLeadsUntilSet = true
	}
	if roletaoSuspension.Cleared {
		patch.SuspendRoletaoUntilSet = true
	}
	if checkpointDue {
		patch.NextCheckpointAtSet = true
		patch.CheckpointReasonSet = true
	}

	if _, err := s.states.UpdateState(ctx, userID, patch); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	changedLeads := canReceiveLeads != state.CanReceiveNewLeads
	changedRoletao := canClaimRoletao != state.CanClaimRoletao
	changed := changedLeads || changedRoletao

	if changed {
		if err := s.auditTransition(ctx, userID, trigger, actorUserID, state, canReceiveLeads, canClaimRoletao, enforcements, benchmark); err != nil {
			return transport.UserHealthSnapshot{}, err
		}
		s.publishToggleEvents(ctx, userID, state, canReceiveLeads, canClaimRoletao, enforcements)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.SnapshotRecomputed{
			BaseEvent: events.NewBaseEvent(),
			UserID:    userID,
			Trigger:   trigger,
			Changed:   changed,
		})
	}

	s.log.Recompute(userID, trigger, changed, float64(time.Since(started).Milliseconds()))

	return snapshot, nil
}

// overlaySuspension applies one stored suspension to a toggle. An active
// suspension records its reason on the toggle's enforcement state, creating
// the record when enforcement itself produced none.
func (s *Service) overlaySuspension(enforcements map[string]enforcement.State, toggleID string, now time.Time, until *time.Time, value bool) (bool, enforcement.SuspensionResult) {
	st := enforcements[toggleID]
	res := enforcement.ApplySuspension(now, until, value, &st)
	if res.Active {
		enforcements[toggleID] = st
	}
	return res.Value, res
}

func (s *Service) auditTransition(
	ctx context.Context,
	userID, trigger string,
	actorUserID *string,
	prev repository.UserState,
	canReceiveLeads, canClaimRoletao bool,
	enforcements map[string]enforcement.State,
	benchmark domain.Benchmark,
) error {
	changes := map[string]any{}
	if canReceiveLeads != prev.CanReceiveNewLeads {
		changes["can_receive_new_leads"] = map[string]bool{"from": prev.CanReceiveNewLeads, "to": canReceiveLeads}
	}
	if canClaimRoletao != prev.CanClaimRoletao {
		changes["can_claim_roletao"] = map[string]bool{"from": prev.CanClaimRoletao, "to": canClaimRoletao}
	}

	reasons := map[string]any{}
	for toggleID, st := range enforcements {
		reasons[toggleID] = st.Reasons
	}

	return s.appendAudit(ctx, userID, repository.AppendAuditParams{
		Type:        repository.AuditSnapshotRecomputed,
		Label:       "Snapshot de saúde recalculado",
		ActorUserID: actorUserID,
		Meta: map[string]any{
			"trigger": trigger,
			"changes": changes,
			"reasons": reasons,
			"benchmark": map[string]any{
				"totalLeads":      benchmark.TotalLeads,
				"converted":       benchmark.Converted,
				"averageConvRate": benchmark.AverageConvRate,
			},
		},
	})
}

func (s *Service) publishToggleEvents(
	ctx context.Context,
	userID string,
	prev repository.UserState,
	canReceiveLeads, canClaimRoletao bool,
	enforcements map[string]enforcement.State,
) {
	if s.bus == nil {
		return
	}

	publish := func(toggleID string, from, to bool) {
		st := enforcements[toggleID]
		s.bus.Publish(ctx, events.AutomationToggleChanged{
			BaseEvent: events.NewBaseEvent(),
			UserID:    userID,
			ToggleID:  toggleID,
			From:      from,
			To:        to,
			Enforced:  st.Enforced,
			Reasons:   st.Reasons,
		})
	}

	if canReceiveLeads != prev.CanReceiveNewLeads {
		publish(enforcement.ToggleReceiveLeads, prev.CanReceiveNewLeads, canReceiveLeads)
	}
	if canClaimRoletao != prev.CanClaimRoletao {
		publish(enforcement.ToggleRoletaoClaim, prev.CanClaimRoletao, canClaimRoletao)
	}
}

func windowKey(days int) string {
	return strconv.Itoa(days) + "d"
}
