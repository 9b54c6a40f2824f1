// Package service orchestrates the user health engine: it runs the
// segmenters, metrics and enforcement over the raw records, overlays manual
// suspensions, persists the resulting state and appends the audit trail.
package service

import (
	"context"
	"sync"
	"time"

	"imobportal_backend/internal/events"
	"imobportal_backend/internal/health/domain"
	"imobportal_backend/internal/health/repository"
	"imobportal_backend/internal/health/transport"
	"imobportal_backend/platform/apperr"
	"imobportal_backend/platform/logger"
)

// Recompute triggers recorded on audit events.
const (
	TriggerSnapshotRead        = "snapshot_read"
	TriggerFlagsSaved          = "automation_flags_saved"
	TriggerSuspensionSaved     = "suspension_saved"
	TriggerCheckpointSaved     = "checkpoint_schedule_saved"
	TriggerManualCheckpoint    = "manual_checkpoint"
	TriggerScheduledSweep      = "scheduled_sweep"
	TriggerScheduledCheckpoint = "scheduled_checkpoint"
)

// RecordSource reads the raw lead/property records and the user roster.
// This is a consumer-driven interface - only what the engine needs.
type RecordSource interface {
	ListLeads(ctx context.Context) ([]domain.Record, error)
	ListProperties(ctx context.Context) ([]domain.Record, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// StateStore persists per-user automation state with merge semantics.
type StateStore interface {
	GetOrCreateState(ctx context.Context, userID string) (repository.UserState, error)
	UpdateState(ctx context.Context, userID string, patch repository.UserStatePatch) (repository.UserState, error)
}

// AuditLog is the append-only audit trail.
type AuditLog interface {
	AppendAudit(ctx context.Context, userID string, params repository.AppendAuditParams) (repository.AuditEvent, error)
	ListAudit(ctx context.Context, userID string, limit int) ([]repository.AuditEvent, error)
}

// Service is the health engine orchestrator.
type Service struct {
	records RecordSource
	states  StateStore
	audit   AuditLog
	bus     events.Bus
	log     *logger.Logger

	segmenter *domain.Segmenter

	// now is swappable in tests; enforcement and suspension expiry are pure
	// functions of it.
	now func() time.Time

	// locks serializes the read-modify-write cycle per user so a manual save
	// racing a scheduled tick never loses updates. Recomputes of distinct
	// users run concurrently.
	locks sync.Map // userID -> *sync.Mutex
}

// New creates the health engine service. An empty keyword set falls back to
// the built-in automation keywords.
func New(records RecordSource, states StateStore, audit AuditLog, bus events.Bus, automationKeywords []string, log *logger.Logger) *Service {
	classifier := domain.NewClassifier(automationKeywords)
	return &Service{
		records:   records,
		states:    states,
		audit:     audit,
		bus:       bus,
		log:       log,
		segmenter: domain.NewSegmenter(domain.NewRecency(classifier)),
		now:       time.Now,
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GetSnapshot recomputes and returns the user's health snapshot.
func (s *Service) GetSnapshot(ctx context.Context, userID string) (transport.UserHealthSnapshot, error) {
	return s.Recompute(ctx, userID, TriggerSnapshotRead, nil)
}

// Recompute runs a full recompute-and-persist cycle for the user and returns
// the fresh snapshot. It is idempotent: a pure function of the persisted
// state, the raw records and the clock, so retrying is always safe.
func (s *Service) Recompute(ctx context.Context, userID string, trigger string, actorUserID *string) (transport.UserHealthSnapshot, error) {
	if userID == "" {
		return transport.UserHealthSnapshot{}, apperr.Validation("user id is required")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	return s.recompute(ctx, userID, trigger, actorUserID)
}

// SaveAutoFlags persists manual flag changes, audits them and recomputes.
func (s *Service) SaveAutoFlags(ctx context.Context, userID string, req transport.SaveAutoFlagsRequest, actorUserID *string) (transport.UserHealthSnapshot, error) {
	if userID == "" {
		return transport.UserHealthSnapshot{}, apperr.Validation("user id is required")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	patch := repository.UserStatePatch{
		AutoEnforceHealthLeads: req.AutoEnforceHealthLeads,
		AutoEnforceRoletao:     req.AutoEnforceRoletao,
		CanReceiveNewLeads:     req.CanReceiveNewLeads,
		CanClaimRoletao:        req.CanClaimRoletao,
		RoletaoEnabled:         req.RoletaoEnabled,
	}

	if _, err := s.states.GetOrCreateState(ctx, userID); err != nil {
		return transport.UserHealthSnapshot{}, err
	}
	if _, err := s.states.UpdateState(ctx, userID, patch); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	meta := map[string]any{}
	putFlag := func(key string, v *bool) {
		if v != nil {
			meta[key] = *v
		}
	}
	putFlag("auto_enforce_health_leads", req.AutoEnforceHealthLeads)
	putFlag("auto_enforce_roletao", req.AutoEnforceRoletao)
	putFlag("can_receive_new_leads", req.CanReceiveNewLeads)
	putFlag("can_claim_roletao", req.CanClaimRoletao)
	putFlag("roletao_enabled", req.RoletaoEnabled)

	if err := s.appendAudit(ctx, userID, repository.AppendAuditParams{
		Type:        repository.AuditAutomationFlagsSaved,
		Label:       "Preferências de automação salvas",
		ActorUserID: actorUserID,
		Meta:        meta,
	}); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	return s.recompute(ctx, userID, TriggerFlagsSaved, actorUserID)
}

// SaveSuspension sets or clears a temporary suspension, audits the boundary
// change and recomputes. The suspension save is audited before the
// recompute's own audit entry.
func (s *Service) SaveSuspension(ctx context.Context, userID string, req transport.SaveSuspensionRequest, actorUserID *string) (transport.UserHealthSnapshot, error) {
	if userID == "" {
		return transport.UserHealthSnapshot{}, apperr.Validation("user id is required")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	patch := repository.UserStatePatch{}
	switch req.Scope {
	case "leads":
		patch.SuspendLeadsUntil = req.Until
		patch.SuspendLeadsUntilSet = true
	case "roletao":
		patch.SuspendRoletaoUntil = req.Until
		patch.SuspendRoletaoUntilSet = true
	default:
		return transport.UserHealthSnapshot{}, apperr.Validation("scope must be leads or roletao")
	}

	if _, err := s.states.GetOrCreateState(ctx, userID); err != nil {
		return transport.UserHealthSnapshot{}, err
	}
	if _, err := s.states.UpdateState(ctx, userID, patch); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	eventType := repository.AuditSuspensionCleared
	label := "Suspensão temporária removida"
	meta := map[string]any{"scope": req.Scope}
	if req.Until != nil {
		eventType = repository.AuditSuspensionSet
		label = "Suspensão temporária definida"
		meta["until"] = req.Until.Format(time.RFC3339)
	}

	if err := s.appendAudit(ctx, userID, repository.AppendAuditParams{
		Type:        eventType,
		Label:       label,
		ActorUserID: actorUserID,
		Meta:        meta,
	}); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	return s.recompute(ctx, userID, TriggerSuspensionSaved, actorUserID)
}

// SaveCheckpointSchedule persists the next checkpoint instant and reason,
// audits the change and recomputes.
func (s *Service) SaveCheckpointSchedule(ctx context.Context, userID string, req transport.SaveCheckpointRequest, actorUserID *string) (transport.UserHealthSnapshot, error) {
	if userID == "" {
		return transport.UserHealthSnapshot{}, apperr.Validation("user id is required")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	patch := repository.UserStatePatch{
		NextCheckpointAt:    req.At,
		NextCheckpointAtSet: true,
		CheckpointReason:    req.Reason,
		CheckpointReasonSet: true,
	}

	if _, err := s.states.GetOrCreateState(ctx, userID); err != nil {
		return transport.UserHealthSnapshot{}, err
	}
	if _, err := s.states.UpdateState(ctx, userID, patch); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	meta := map[string]any{}
	if req.At != nil {
		meta["next_checkpoint_at"] = req.At.Format(time.RFC3339)
	}
	if req.Reason != nil {
		meta["reason"] = *req.Reason
	}

	if err := s.appendAudit(ctx, userID, repository.AppendAuditParams{
		Type:        repository.AuditCheckpointSaved,
		Label:       "Agendamento de checkpoint salvo",
		ActorUserID: actorUserID,
		Meta:        meta,
	}); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	return s.recompute(ctx, userID, TriggerCheckpointSaved, actorUserID)
}

// RunCheckpointNow audits a manual checkpoint and recomputes immediately.
func (s *Service) RunCheckpointNow(ctx context.Context, userID string, actorUserID *string) (transport.UserHealthSnapshot, error) {
	if userID == "" {
		return transport.UserHealthSnapshot{}, apperr.Validation("user id is required")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.states.GetOrCreateState(ctx, userID); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	if err := s.appendAudit(ctx, userID, repository.AppendAuditParams{
		Type:        repository.AuditCheckpointRun,
		Label:       "Checkpoint executado manualmente",
		ActorUserID: actorUserID,
	}); err != nil {
		return transport.UserHealthSnapshot{}, err
	}

	return s.recompute(ctx, userID, TriggerManualCheckpoint, actorUserID)
}

// ListAudit returns the user's recent audit events.
func (s *Service) ListAudit(ctx context.Context, userID string, limit int) ([]repository.AuditEvent, error) {
	return s.audit.ListAudit(ctx, userID, limit)
}

// HouseBenchmark computes the current house-wide conversion baseline.
func (s *Service) HouseBenchmark(ctx context.Context) (domain.Benchmark, error) {
	leads, err := s.records.ListLeads(ctx)
	if err != nil {
		return domain.Benchmark{}, err
	}
	return domain.ComputeBenchmark(leads, s.now()), nil
}

// ListUserIDs exposes the roster for the scheduled sweep.
func (s *Service) ListUserIDs(ctx context.Context) ([]string, error) {
	return s.records.ListUserIDs(ctx)
}

func (s *Service) appendAudit(ctx context.Context, userID string, params repository.AppendAuditParams) error {
	if _, err := s.audit.AppendAudit(ctx, userID, params); err != nil {
		return err
	}
	s.log.AuditAppend(userID, params.Type)
	return nil
}
