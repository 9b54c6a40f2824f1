package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit event types emitted by the engine.
const (
	AuditSnapshotRecomputed    = "health_snapshot_recomputed"
	AuditAutomationFlagsSaved  = "automation_flags_saved"
	AuditSuspensionSet         = "temporary_suspension_set"
	AuditSuspensionCleared     = "temporary_suspension_cleared"
	AuditCheckpointSaved       = "checkpoint_schedule_saved"
	AuditCheckpointRun         = "checkpoint_run"
)

// AuditEvent is one append-only audit trail entry. Events are never mutated
// or deleted.
type AuditEvent struct {
	ID          uuid.UUID      `json:"id"`
	UserID      string         `json:"userId"`
	Ts          time.Time      `json:"ts"`
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	ActorUserID *string        `json:"actorUserId"`
	Meta        map[string]any `json:"meta"`
}

// AppendAuditParams are the caller-supplied fields of a new audit event.
// Id generation and timestamping belong to the store.
type AppendAuditParams struct {
	Type        string
	Label       string
	ActorUserID *string
	Meta        map[string]any
}

// AppendAudit appends one audit event for the user and returns it.
func (r *Repository) AppendAudit(ctx context.Context, userID string, params AppendAuditParams) (AuditEvent, error) {
	metaJSON, err := json.Marshal(params.Meta)
	if err != nil {
		return AuditEvent{}, err
	}

	event := AuditEvent{
		UserID:      userID,
		Type:        params.Type,
		Label:       params.Label,
		ActorUserID: params.ActorUserID,
		Meta:        params.Meta,
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO audit_events (user_id, event_type, label, actor_user_id, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ts
	`, userID, params.Type, params.Label, params.ActorUserID, metaJSON).Scan(&event.ID, &event.Ts)
	if err != nil {
		return AuditEvent{}, err
	}

	return event, nil
}

// ListAudit returns the user's most recent audit events, newest first.
func (r *Repository) ListAudit(ctx context.Context, userID string, limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, ts, event_type, label, actor_user_id, meta
		FROM audit_events
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var event AuditEvent
		var metaJSON []byte
		if err := rows.Scan(&event.ID, &event.UserID, &event.Ts, &event.Type, &event.Label, &event.ActorUserID, &metaJSON); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &event.Meta)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
